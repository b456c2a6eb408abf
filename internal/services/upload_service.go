package services

import (
	"context"
	"errors"
)

// DisabledUploader is wired when no object-storage credentials are
// configured; avatar uploads fail fast instead of panicking at call time.
type DisabledUploader struct{}

func NewDisabledUploader() *DisabledUploader {
	return &DisabledUploader{}
}

func (u *DisabledUploader) Upload(ctx context.Context, data []byte, folder string) (string, error) {
	return "", errors.New("object storage is not configured")
}
