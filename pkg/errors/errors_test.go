package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewExternalError("failed to query products", stderrors.New("connection refused"))
	assert.Equal(t, "EXTERNAL: failed to query products: connection refused", err.Error())

	notFound := NewNotFoundError("category cat_1 not found")
	assert.Equal(t, "NOT_FOUND: category cat_1 not found", notFound.Error())
}

func TestTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("listing: %w", NewValidationError("page_size too large"))

	assert.Equal(t, ErrorTypeValidation, TypeOf(wrapped))
	assert.Equal(t, ErrorTypeInternal, TypeOf(stderrors.New("plain")))
	assert.True(t, IsNotFound(NewNotFoundError("missing")))
	assert.False(t, IsNotFound(nil))
}

func TestWrapExternal(t *testing.T) {
	notFound := NewNotFoundError("brand not found")
	assert.Same(t, notFound, WrapExternal("ctx", notFound))

	cause := stderrors.New("timeout")
	wrapped := WrapExternal("failed to count products", cause)
	assert.Equal(t, ErrorTypeExternal, TypeOf(wrapped))
	assert.ErrorIs(t, wrapped, cause)

	assert.NoError(t, WrapExternal("ctx", nil))
}
