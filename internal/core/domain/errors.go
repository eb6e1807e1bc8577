package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidChunkConfig    = errors.New("invalid chunk config")
	ErrRetrievalUnavailable  = errors.New("retrieval unavailable")
	ErrRerankUnavailable     = errors.New("rerank unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrInvalidConfigValue    = errors.New("invalid config value")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrSettingNotFound       = errors.New("setting not found")
	ErrSettingAlreadyExists  = errors.New("setting already exists")
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrUnknownProvider       = errors.New("unknown provider")
	ErrTemporary             = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
