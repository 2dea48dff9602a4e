package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := NotFound("shift_not_found", "shift sft_abc not found")
	assert.Equal(t, "shift_not_found: shift sft_abc not found", err.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindCapacityExceeded, KindOf(CapacityExceeded("shift_full", "no open slots")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("accept application: %w", InvalidState("not_pending", "application is not pending"))
	assert.Equal(t, KindInvalidStateTransition, KindOf(err))
	assert.Equal(t, "not_pending", CodeOf(err))
	assert.True(t, IsKind(err, KindInvalidStateTransition))
	assert.False(t, IsKind(err, KindNotFound))
}

func TestErrorsIsMatchesByKindAndCode(t *testing.T) {
	err := Validation("starts_after_ends", "startsAt must be before endsAt")

	require.True(t, errors.Is(err, &Error{Kind: KindValidation}))
	require.True(t, errors.Is(err, &Error{Kind: KindValidation, Code: "starts_after_ends"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindValidation, Code: "other_code"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindForbidden}))
}

func TestNewf(t *testing.T) {
	err := Newf(KindNotFound, "member_not_found", "uid %s is not a member", "usr_1")
	assert.Equal(t, "uid usr_1 is not a member", err.Message)
}
