package services

import "context"

// EmailValidator screens registration emails before an account is created.
// The production implementation calls an external reputation API.
type EmailValidator interface {
	Validate(ctx context.Context, email string) error
}

// LocalValidator is the fallback when no reputation API key is configured.
type LocalValidator struct{}

func NewLocalValidator() *LocalValidator {
	return &LocalValidator{}
}

func (v *LocalValidator) Validate(ctx context.Context, email string) error {
	// Format is already enforced by request validation, so just accept
	return nil
}
