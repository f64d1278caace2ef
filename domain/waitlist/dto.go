package waitlist

import (
	"github.com/seirennn/tradeworkstation-waitlist/internal/models"
)

// Response bodies are part of the public contract with the landing page.
const (
	MessageJoined        = "You're in! We'll be in touch."
	MessageAlreadyJoined = "You're already on the list!"
	MessageInvalidEmail  = "Invalid email address"
	MessageRateLimited   = "Rate limit exceeded. Please try again later."
	MessageInternalError = "Internal Server Error"
)

type JoinRequest struct {
	Email string `json:"email" validate:"required,contains=@"`
}

type JoinResponse struct {
	Message string `json:"message"`

	// Duplicate is set when the email was already on the list.
	Duplicate bool `json:"-"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func ToWaitlistRecord(req *JoinRequest) *models.WaitlistRecord {
	if req == nil {
		return nil
	}
	return &models.WaitlistRecord{
		Email: req.Email,
	}
}
