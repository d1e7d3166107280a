package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/driftsync/driftsync-api/internal/authz"
	"github.com/driftsync/driftsync-api/internal/handlers"
	"github.com/driftsync/driftsync-api/internal/models"
)

// NewRouter sets up the API routes.
func NewRouter(
	auth *handlers.AuthHandler,
	sources *handlers.SourceHandler,
	syncTables *handlers.SyncTableHandler,
	schedules *handlers.ScheduleHandler,
	extractions *handlers.ExtractionHandler,
	notifications *handlers.NotificationHandler,
	users *handlers.UserHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Everything below requires a valid token.
	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	operator := authz.RequireRole(models.RoleOperator)

	// Sources
	api.HandleFunc("/sources", sources.List).Methods(http.MethodGet)
	api.Handle("/sources", operator(http.HandlerFunc(sources.Create))).Methods(http.MethodPost)
	api.HandleFunc("/sources/{id}", sources.Get).Methods(http.MethodGet)
	api.Handle("/sources/{id}", operator(http.HandlerFunc(sources.Update))).Methods(http.MethodPut)
	api.Handle("/sources/{id}", operator(http.HandlerFunc(sources.Delete))).Methods(http.MethodDelete)
	api.Handle("/sources/{id}/test", operator(http.HandlerFunc(sources.TestConnection))).Methods(http.MethodPost)
	api.HandleFunc("/sources/{id}/tables", sources.ListTables).Methods(http.MethodGet)
	api.HandleFunc("/sources/{id}/tables/{table}/columns", sources.ListColumns).Methods(http.MethodGet)

	// Schema snapshots
	api.Handle("/sources/{id}/schema/capture", operator(http.HandlerFunc(sources.CaptureSchema))).Methods(http.MethodPost)
	api.HandleFunc("/sources/{id}/schema", sources.CurrentSchema).Methods(http.MethodGet)
	api.HandleFunc("/sources/{id}/schema/versions", sources.SchemaVersions).Methods(http.MethodGet)
	api.HandleFunc("/sources/{id}/schema/diff", sources.SchemaDiff).Methods(http.MethodGet)

	// Sync table registrations
	api.HandleFunc("/sync-tables", syncTables.List).Methods(http.MethodGet)
	api.Handle("/sync-tables", operator(http.HandlerFunc(syncTables.Create))).Methods(http.MethodPost)
	api.HandleFunc("/sync-tables/{id}", syncTables.Get).Methods(http.MethodGet)
	api.Handle("/sync-tables/{id}", operator(http.HandlerFunc(syncTables.Update))).Methods(http.MethodPut)
	api.Handle("/sync-tables/{id}", operator(http.HandlerFunc(syncTables.Delete))).Methods(http.MethodDelete)
	api.Handle("/sync-tables/{id}/toggle", operator(http.HandlerFunc(syncTables.Toggle))).Methods(http.MethodPost)

	// Schedules
	api.HandleFunc("/schedules", schedules.List).Methods(http.MethodGet)
	api.Handle("/schedules", operator(http.HandlerFunc(schedules.Create))).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}", schedules.Get).Methods(http.MethodGet)
	api.Handle("/schedules/{id}", operator(http.HandlerFunc(schedules.Update))).Methods(http.MethodPut)
	api.Handle("/schedules/{id}", operator(http.HandlerFunc(schedules.Delete))).Methods(http.MethodDelete)
	api.Handle("/schedules/{id}/toggle", operator(http.HandlerFunc(schedules.Toggle))).Methods(http.MethodPost)

	// Extraction jobs
	api.HandleFunc("/extractions", extractions.List).Methods(http.MethodGet)
	api.Handle("/extractions", operator(http.HandlerFunc(extractions.Create))).Methods(http.MethodPost)
	api.HandleFunc("/extractions/{id}", extractions.Get).Methods(http.MethodGet)
	api.HandleFunc("/extractions/{id}/status", extractions.Status).Methods(http.MethodGet)

	// Notifications
	api.HandleFunc("/notifications", notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", notifications.MarkRead).Methods(http.MethodPost)

	// User administration
	admin := authz.RequireRole(models.RoleAdmin)
	api.Handle("/users", admin(http.HandlerFunc(users.List))).Methods(http.MethodGet)
	api.Handle("/users/{userID}", admin(http.HandlerFunc(users.Get))).Methods(http.MethodGet)
	api.Handle("/users/{userID}/roles", admin(http.HandlerFunc(users.UpdateRoles))).Methods(http.MethodPut)
	api.Handle("/users/{userID}", admin(http.HandlerFunc(users.Delete))).Methods(http.MethodDelete)

	return router
}
