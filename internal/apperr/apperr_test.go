package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad")))
	assert.Equal(t, KindUnauthorized, KindOf(Unauthorized("no")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("missing")))
	assert.Equal(t, KindConflict, KindOf(Conflict("dup", nil)))
	assert.Equal(t, KindUpstream, KindOf(Upstream("model", errors.New("boom"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("create card: %w", NotFound("Card not found."))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(nil, KindNotFound))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("generation failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
