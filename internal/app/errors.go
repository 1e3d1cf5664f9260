package service

import (
	"errors"

	"github.com/okian/sackline/internal/adapters/repository"
)

// Sentinel errors.
var (
	ErrNoArtifact   = errors.New("service requires an artifact")
	ErrNotStarted   = errors.New("service not started")
	ErrNotFound     = repository.ErrNotFound
	ErrInvalidLimit = repository.ErrInvalidLimit
)
