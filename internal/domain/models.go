package domain

// ResetPayload is the body the account API expects for a password reset.
type ResetPayload struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetRequest is the token plus new-password payload submitted to complete
// a password reset. Token is opaque and passed through unmodified.
type ResetRequest struct {
	Token           string
	NewPassword     string
	ConfirmPassword string
}

func (r ResetRequest) Payload() ResetPayload {
	return ResetPayload{
		Password:        r.NewPassword,
		ConfirmPassword: r.ConfirmPassword,
	}
}

// ResetResult is the account API's answer to a successful reset.
type ResetResult struct {
	Success bool `json:"success"`
	// Token is the session token the account API issues after a reset.
	Token string `json:"token,omitempty"`
	// UserID is read from Token's claims for logging only.
	UserID string `json:"-"`
}

// Outcome flags of the reset channel. Owned by the store; the form only reads them.
type OutcomeFlags struct {
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
	Loading bool   `json:"loading"`
}

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// StorefrontError is the error body returned by the storefront account API.
type StorefrontError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
