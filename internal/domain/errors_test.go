package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"validation", NewValidationError("title", "is required", nil), KindValidation},
		{"wrapped_validation", fmt.Errorf("create: %w", NewValidationError("title", "is required", nil)), KindValidation},
		{"authorization", &AuthorizationError{OwnerID: 1, PrincipalID: 2}, KindAuthorization},
		{"not_found", NewNotFoundError("course", 3), KindNotFound},
		{"conflict", &ConflictError{Entity: "course average", Message: "version changed"}, KindConflict},
		{"infrastructure", NewInfrastructureError("insert user", errors.New("disk full")), KindInfrastructure},
		{"unclassified", errors.New("boom"), KindInfrastructure},
		{
			"authorization_wins_over_not_found",
			errors.Join(NewNotFoundError("course", 3), &AuthorizationError{}),
			KindAuthorization,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestCategoryAndUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category Category
		message  string
	}{
		{"none", nil, CategoryNone, ""},
		{"inline_field", NewValidationError("grade_value", "must be between 0 and 100", nil), CategoryInlineField, "grade_value must be between 0 and 100"},
		{"access_denied", &AuthorizationError{OwnerID: 10, PrincipalID: 11}, CategoryAccessDenied, "Access denied."},
		{"no_longer_exists", NewNotFoundError("assignment", 5), CategoryNoLongerExists, "This item no longer exists."},
		{"please_retry", &ConflictError{Entity: "enrollment"}, CategoryPleaseRetry, "Someone else changed this at the same time. Please retry."},
		{"generic_failure", errors.New("pq: connection refused"), CategoryGenericFailure, "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, CategoryOf(tt.err))
			assert.Equal(t, tt.message, UserMessage(tt.err))
		})
	}
}

func TestAuthorizationErrorHidesIDs(t *testing.T) {
	err := &AuthorizationError{OwnerID: 42, PrincipalID: 7}
	assert.Equal(t, "access denied", err.Error())
	assert.NotContains(t, err.Error(), "42")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("constraint")
	assert.ErrorIs(t, NewInfrastructureError("insert", cause), cause)
	assert.ErrorIs(t, &ConflictError{Entity: "x", Err: cause}, cause)
	assert.ErrorIs(t, NewValidationError("f", "bad", cause), cause)
	assert.ErrorIs(t, NewValidationError("f", "bad", nil), ErrValidation)
}
