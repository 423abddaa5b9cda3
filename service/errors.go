package service

import (
	"errors"
	"fmt"

	"jansarthi/models"
)

// Not-found sentinels, matched by handlers with errors.Is.
var (
	ErrIssueNotFound    = errors.New("issue not found")
	ErrLocalityNotFound = errors.New("locality not found")
	ErrUserNotFound     = errors.New("user not found")
)

// ValidationError reports a request rejected before any write happened.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError reports a uniqueness or referential-integrity clash.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// InvalidTransitionError reports a status change that is not the unique
// successor of the stored status, or one attempted by the wrong actor.
type InvalidTransitionError struct {
	Current models.IssueStatus
	Target  models.IssueStatus
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot transition from %s to %s: %s", e.Current, e.Target, e.Reason)
	}
	return fmt.Sprintf("cannot transition from %s to %s", e.Current, e.Target)
}

// UploadError reports a failed interaction with the object store. The
// wrapped error keeps the storage detail for logs.
type UploadError struct {
	Op  string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("photo storage %s failed: %v", e.Op, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
