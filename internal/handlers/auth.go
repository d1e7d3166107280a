package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"

	"github.com/driftsync/driftsync-api/internal/authz"
	"github.com/driftsync/driftsync-api/internal/config"
	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/driftsync/driftsync-api/internal/repository"
)

const tokenLifetime = 24 * time.Hour

type AuthHandler struct {
	users     repository.UserRepository
	jwtSecret []byte
	logger    zerolog.Logger
}

type credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func NewAuthHandler(db *sql.DB, cfg *config.Config, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users:     repository.NewUserRepository(db),
		jwtSecret: []byte(cfg.JWTSecret),
		logger:    logger,
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.Create(r.Context(), repository.CreateUserParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Roles:     []models.UserRole{models.RoleViewer},
	})
	if err != nil {
		http.Error(w, "Failed to create user: "+err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, models.User{ID: user.ID, Email: user.Email, Roles: user.Roles})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCredentials) || errors.Is(err, repository.ErrUserInactive) {
			http.Error(w, "Authentication failed: "+err.Error(), http.StatusUnauthorized)
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	token, err := h.tokenFor(user)
	if err != nil {
		http.Error(w, "Failed to generate token: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// tokenFor signs a JWT carrying the full role list plus the highest role as
// a flat claim for older clients.
func (h *AuthHandler) tokenFor(user models.User) (string, error) {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"role":  string(models.HighestRole(user.Roles)),
		"roles": roles,
		"exp":   time.Now().Add(tokenLifetime).Unix(),
	})
	return token.SignedString(h.jwtSecret)
}

// JWTMiddleware authenticates the request and stashes the caller identity
// on the context for the role gates down the chain.
func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return h.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
			http.Error(w, "Token expired", http.StatusUnauthorized)
			return
		}
		roles, ok := rolesFromClaims(claims)
		if !ok {
			http.Error(w, "Missing role claim", http.StatusUnauthorized)
			return
		}

		userID, _ := claims["sub"].(string)
		ctx := authz.WithIdentity(r.Context(), userID, roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", errors.New("Authorization header required")
	}
	scheme, token, found := strings.Cut(auth, " ")
	if !found || scheme != "Bearer" {
		return "", errors.New("Invalid authorization format")
	}
	return token, nil
}

// rolesFromClaims reads the "roles" list claim, falling back to the flat
// "role" claim from tokens issued before the list existed.
func rolesFromClaims(claims jwt.MapClaims) ([]models.UserRole, bool) {
	var names []string
	switch v := claims["roles"].(type) {
	case []interface{}:
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, false
			}
			names = append(names, name)
		}
	case []string:
		names = v
	case string:
		names = []string{v}
	case nil:
		single, ok := claims["role"].(string)
		if !ok || single == "" {
			return nil, false
		}
		names = []string{single}
	default:
		return nil, false
	}

	roles := make([]models.UserRole, 0, len(names))
	for _, name := range names {
		role := models.UserRole(name)
		if !models.IsValidRole(role) {
			return nil, false
		}
		roles = append(roles, role)
	}
	return models.EnsureDefaultRole(models.NormalizeRoles(roles)), true
}
