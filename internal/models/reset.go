package models

import "time"

// ResetCode is an issued one-time password reset code.
type ResetCode struct {
	Code     string
	IssuedAt time.Time
}

// PasswordResetRequest asks for a reset code to be mailed.
type PasswordResetRequest struct {
	Scope     string `json:"scope"`
	StudentID string `json:"student_id" validate:"required"`
}

// ConfirmPasswordResetRequest redeems a reset code.
type ConfirmPasswordResetRequest struct {
	Scope         string `json:"scope"`
	StudentID     string `json:"student_id" validate:"required"`
	Code          string `json:"code" validate:"required"`
	NewCredential string `json:"new_password" validate:"required,passcode"`
}
