// Package common provides shared utilities and types used across the pipeline.
package common

import (
	"errors"
	"fmt"
)

// Common pipeline errors.
var (
	// Input errors.
	ErrMissingInput = errors.New("missing input file")
	ErrEmptyInput   = errors.New("input file has no data rows")

	// Scraper errors.
	ErrFetchFailed = errors.New("fetch failed")
	ErrRateLimit   = errors.New("rate limit exceeded")
	ErrMaxRetries  = errors.New("max retries exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// MissingColumnError reports an input file that lacks every candidate name
// for a required column. Fatal for the stage that needs that column.
type MissingColumnError struct {
	File       string
	Column     string
	Candidates []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: no %s column found (tried %v)", e.File, e.Column, e.Candidates)
}

// NewMissingColumnError creates a MissingColumnError for the given file and
// the candidate header names that were tried, in priority order.
func NewMissingColumnError(file, column string, candidates []string) error {
	return &MissingColumnError{File: file, Column: column, Candidates: candidates}
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
