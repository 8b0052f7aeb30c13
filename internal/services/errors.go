package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/trailaccess/trailguide/internal/platform/retry"
	"github.com/trailaccess/trailguide/internal/repositories"
)

var (
	// ErrUnauthenticated indicates a social action was attempted without a signed-in user.
	ErrUnauthenticated = errors.New("session: sign-in required")
	// ErrLikePending indicates a toggle for the same trail is still awaiting the remote store.
	ErrLikePending = errors.New("like: previous toggle still pending")
	// ErrTrailNotFound indicates the trail is not part of the loaded catalog.
	ErrTrailNotFound = errors.New("catalog: trail not found")
	// ErrInvalidInput indicates the caller supplied an unusable argument.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorKind is the retry classification of a failure.
type ErrorKind int

const (
	// ErrorKindPermanent failures are surfaced immediately and never retried.
	ErrorKindPermanent ErrorKind = iota
	// ErrorKindTransient failures are retried with backoff.
	ErrorKindTransient
)

func (k ErrorKind) String() string {
	if k == ErrorKindTransient {
		return "transient"
	}
	return "permanent"
}

// Classify maps an error onto the retry taxonomy. Timeouts, backend outages and target
// conflicts are transient; everything else, including unrecognised errors, is permanent.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindPermanent
	}
	if errors.Is(err, retry.ErrAttemptTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTransient
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && (repoErr.IsUnavailable() || repoErr.IsConflict()) {
		return ErrorKindTransient
	}
	return ErrorKindPermanent
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return Classify(err) == ErrorKindTransient
}

// IsNotFound reports whether err names a missing record.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrTrailNotFound) {
		return true
	}
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsPermissionDenied reports whether the remote store rejected the caller.
func IsPermissionDenied(err error) bool {
	var permErr repositories.PermissionError
	return errors.As(err, &permErr) && permErr.IsPermissionDenied()
}

// IsInvalid reports whether err stems from malformed input.
func IsInvalid(err error) bool {
	if errors.Is(err, ErrInvalidInput) || errors.Is(err, repositories.ErrInvalidLikeDelta) {
		return true
	}
	var invalidErr repositories.InvalidError
	return errors.As(err, &invalidErr) && invalidErr.IsInvalid()
}

// FetchError reports that both the fresh and the fallback source failed. Its retry
// classification follows the fresh error.
type FetchError struct {
	Query    repositories.TrailQuery
	Fresh    error
	Fallback error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("fetch %s: fresh: %v; fallback: %v", e.Query.Key(), e.Fresh, e.Fallback)
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Fresh
}

// LikeError reports a like toggle that was rolled back after the remote update failed.
// The local state is back to its pre-toggle value and the action can be re-issued.
type LikeError struct {
	TrailID string
	Delta   int
	Err     error
}

func (e *LikeError) Error() string {
	if e == nil {
		return ""
	}
	action := "like"
	if e.Delta < 0 {
		action = "unlike"
	}
	return fmt.Sprintf("%s %s rolled back: %v", action, e.TrailID, e.Err)
}

func (e *LikeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Recoverable reports that the caller may retry the action manually.
func (e *LikeError) Recoverable() bool { return e != nil }
