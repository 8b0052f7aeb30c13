package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trailaccess/trailguide/internal/platform/retry"
	"github.com/trailaccess/trailguide/internal/repositories"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "attempt timeout", err: fmt.Errorf("%w after 1s", retry.ErrAttemptTimeout), want: ErrorKindTransient},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorKindTransient},
		{name: "unavailable", err: errUnavailable, want: ErrorKindTransient},
		{name: "target conflict", err: repoError{conflict: true}, want: ErrorKindTransient},
		{name: "wrapped unavailable", err: fmt.Errorf("list: %w", errUnavailable), want: ErrorKindTransient},
		{name: "not found", err: repoError{notFound: true}, want: ErrorKindPermanent},
		{name: "permission denied", err: errDenied, want: ErrorKindPermanent},
		{name: "malformed query", err: repoError{invalid: true}, want: ErrorKindPermanent},
		{name: "unknown", err: errors.New("boom"), want: ErrorKindPermanent},
		{name: "cancelled", err: context.Canceled, want: ErrorKindPermanent},
		{name: "nil", err: nil, want: ErrorKindPermanent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestFetchErrorFollowsFreshClassification(t *testing.T) {
	transient := &FetchError{Query: repositories.PublicCatalogQuery(), Fresh: errUnavailable, Fallback: errors.New("disk")}
	assert.True(t, IsTransient(transient))

	permanent := &FetchError{Query: repositories.PublicCatalogQuery(), Fresh: errDenied, Fallback: errUnavailable}
	assert.False(t, IsTransient(permanent))
	assert.True(t, IsPermissionDenied(permanent))
	assert.Contains(t, permanent.Error(), "fallback")
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsNotFound(ErrTrailNotFound))
	assert.True(t, IsNotFound(repoError{notFound: true}))
	assert.True(t, IsInvalid(fmt.Errorf("%w: bad sort", ErrInvalidInput)))
	assert.True(t, IsInvalid(repositories.ErrInvalidLikeDelta))
	assert.False(t, IsInvalid(errUnavailable))

	likeErr := &LikeError{TrailID: "t-1", Delta: -1, Err: errUnavailable}
	assert.True(t, likeErr.Recoverable())
	assert.Contains(t, likeErr.Error(), "unlike t-1")
	assert.ErrorIs(t, likeErr, errUnavailable)
}
