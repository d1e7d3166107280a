package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/driftsync/driftsync-api/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
)

// CreateUserParams carries the signup fields. Roles default to viewer when
// empty.
type CreateUserParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Roles     []models.UserRole
}

type UserRepository interface {
	Create(ctx context.Context, params CreateUserParams) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	UpdateRoles(ctx context.Context, userID string, roles []models.UserRole) (models.User, error)
	Delete(ctx context.Context, userID string) error
}

const userColumns = "id, email, first_name, last_name, password_hash, is_active, roles"

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, params CreateUserParams) (models.User, error) {
	roles, err := normalizeRoleSet(params.Roles)
	if err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:        strings.TrimSpace(params.Email),
		FirstName:    strings.TrimSpace(params.FirstName),
		LastName:     strings.TrimSpace(params.LastName),
		PasswordHash: string(hash),
		IsActive:     true,
		Roles:        roles,
	}
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, first_name, last_name, password_hash, is_active, roles)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		user.Email, user.FirstName, user.LastName, user.PasswordHash, user.IsActive, rolesArray(user.Roles),
	).Scan(&user.ID)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := r.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if !user.IsActive {
		return models.User{}, ErrUserInactive
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email)
	return scanUser(row)
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, userID)
	return scanUser(row)
}

func (r *userRepository) UpdateRoles(ctx context.Context, userID string, roles []models.UserRole) (models.User, error) {
	if len(roles) == 0 {
		return models.User{}, errors.New("roles cannot be empty")
	}
	normalized, err := normalizeRoleSet(roles)
	if err != nil {
		return models.User{}, err
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET roles = $2, updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING `+userColumns,
		userID, rolesArray(normalized))
	return scanUser(row)
}

// Delete deactivates the account; rows are kept for audit.
func (r *userRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET is_active = FALSE, deleted_at = now(), updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (models.User, error) {
	var user models.User
	var roles pq.StringArray
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.IsActive, &roles)
	if err != nil {
		return models.User{}, err
	}

	for _, role := range roles {
		user.Roles = append(user.Roles, models.UserRole(role))
	}
	user.Roles = models.EnsureDefaultRole(models.NormalizeRoles(user.Roles))
	if !models.IsValidRoleList(user.Roles) {
		return models.User{}, errors.New("user has invalid roles")
	}
	return user, nil
}

func normalizeRoleSet(roles []models.UserRole) ([]models.UserRole, error) {
	if len(roles) == 0 {
		roles = []models.UserRole{models.RoleViewer}
	}
	if !models.IsValidRoleList(roles) {
		return nil, errors.New("invalid roles")
	}
	return models.EnsureDefaultRole(models.NormalizeRoles(roles)), nil
}

func rolesArray(roles []models.UserRole) pq.StringArray {
	out := make(pq.StringArray, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}
