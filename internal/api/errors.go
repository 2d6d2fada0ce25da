package api

import "encoding/json"

// AuthError reports rejected credentials during login.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "invalid credentials"
}

// RegisterError reports a rejected registration, carrying the
// server-provided message when one was returned.
type RegisterError struct {
	Message string
}

func (e *RegisterError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "registration failed"
}

// ResetError reports a rejected password-reset request.
type ResetError struct {
	Message string
}

func (e *ResetError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "password reset request failed"
}

// UploadError reports a rejected upload, either locally (not a CSV
// file) or by the server.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "upload failed"
}

// serverMessage extracts the "error" field from an API error body.
// Returns an empty string if the body is not in that shape.
func serverMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return payload.Error
}
