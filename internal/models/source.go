package models

import (
	"fmt"
	"time"
)

// Source is a registered source database connection descriptor.
type Source struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Host      string    `json:"host" db:"host"`
	Port      int       `json:"port" db:"port"`
	Database  string    `json:"database" db:"database"`
	User      string    `json:"user" db:"username"`
	Password  string    `json:"-" db:"-"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (s *Source) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		s.User, s.Password, s.Host, s.Port, s.Database)
}
