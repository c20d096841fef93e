package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("load: %w", ErrPostNotFound)))
	assert.Equal(t, KindConflict, KindOf(ErrDuplicateIdentity))
	assert.Equal(t, KindValidation, KindOf(Validation("title is required")))
	assert.Equal(t, KindInternal, KindOf(errors.New("disk on fire")))
}

func TestIsMatchesCode(t *testing.T) {
	err := ErrCategoryNotFound.AsKind(KindValidation).WithMessage("category 7 does not exist")

	assert.True(t, errors.Is(err, ErrCategoryNotFound))
	assert.False(t, errors.Is(err, ErrPostNotFound))
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestAsWrapsUnknown(t *testing.T) {
	cause := errors.New("boom")
	e := As(cause)

	assert.Equal(t, KindInternal, e.Kind)
	assert.ErrorIs(t, e, cause)
	assert.Equal(t, ErrForbidden, As(fmt.Errorf("x: %w", ErrForbidden)))
}
