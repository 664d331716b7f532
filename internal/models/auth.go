package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole distinguishes students from operators.
type UserRole string

const (
	RoleStudent UserRole = "STUDENT"
	RoleAdmin   UserRole = "ADMIN"
)

// LoginRequest holds the institutional credentials relayed to the identity feed.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token, the stored students and the raw identity profile.
type LoginResponse struct {
	AccessToken string                 `json:"access_token"`
	ExpiresIn   int64                  `json:"expires_in"`
	StudentID   string                 `json:"student_id"`
	Students    []Student              `json:"students"`
	Profile     map[string]interface{} `json:"profile"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Email  string   `json:"email"`
	jwt.RegisteredClaims
}
