package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds a student's credentials.
type LoginRequest struct {
	Scope     string `json:"scope"`
	StudentID string `json:"student_id" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// LoginResponse returns the profile and an access token.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	IssuedAt    time.Time   `json:"issued_at"`
	Student     StudentView `json:"student"`
}

// RegisterRequest creates a student row.
type RegisterRequest struct {
	Scope     string `json:"scope"`
	StudentID string `json:"student_id" validate:"required,max=64"`
	Name      string `json:"name" validate:"required,max=128"`
	Sex       string `json:"sex" validate:"omitempty,max=16"`
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"required,passcode"`
}

// ExperienceRequest credits experience to a student.
type ExperienceRequest struct {
	Scope  string `json:"scope"`
	Amount int    `json:"amount" validate:"gt=0"`
}

// JWTClaims represents the access token payload for students.
type JWTClaims struct {
	StudentID string `json:"student_id"`
	Scope     string `json:"scope"`
	Name      string `json:"name"`
	jwt.RegisteredClaims
}
