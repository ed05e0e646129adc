package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleLearner    Role = "learner"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID                  string    `bson:"_id,omitempty" json:"id"`
	Email               string    `bson:"email" json:"email"`
	Name                string    `bson:"name" json:"name"`
	PasswordHash        string    `bson:"password_hash,omitempty" json:"-"`
	Role                Role      `bson:"role" json:"role"`
	Points              int       `bson:"points" json:"points"`
	Provider            string    `bson:"provider" json:"provider"`
	AvatarURL           string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at" json:"updated_at"`
	// CreditedSubmissions are the attempts whose points are in Points.
	CreditedSubmissions []string  `bson:"credited_submissions,omitempty" json:"-"`
}

// Session is the caller identity resolved once per request.
type Session struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func (s Session) Is(roles ...Role) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func (c *Claims) Session() Session {
	return Session{UserID: c.UserID, Name: c.Name, Email: c.Email, Role: c.Role}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     Role   `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}
