// Package validation holds the typed request payloads and their rule sets.
// Rules mirror the product's account constraints: password at least 6
// characters, display name 3..50, six-digit OTP codes.
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tuandungsonhoapy/Trello-Web-BackEnd/internal/apperr"
)

var validate = validator.New()

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type VerifyAccountRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateUserRequest carries the three mutually exclusive update modes:
// password change, avatar upload (multipart, outside this struct) or a
// plain field update.
type UpdateUserRequest struct {
	DisplayName     string `json:"displayName" form:"displayName" validate:"omitempty,min=3,max=50"`
	CurrentPassword string `json:"current_password" form:"current_password" validate:"required_with=NewPassword,omitempty,min=6"`
	NewPassword     string `json:"new_password" form:"new_password" validate:"required_with=CurrentPassword,omitempty,min=6"`
}

type TwoFARequest struct {
	OTPToken string `json:"otpToken" validate:"required,len=6,numeric"`
}

// Struct validates a request payload, flattening rule violations into one
// field-detailed validation error.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.New(apperr.KindValidation, "invalid request")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return apperr.New(apperr.KindValidation, strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "required_with":
		return fmt.Sprintf("%s is required together with %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
