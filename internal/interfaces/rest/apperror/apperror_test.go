package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Status(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, Validation("bad").Status())
	assert.Equal(t, http.StatusNotFound, NotFound("gone").Status())
	assert.Equal(t, http.StatusServiceUnavailable, Unavailable("later").Status())
	assert.Equal(t, http.StatusInternalServerError, Internal("boom", nil).Status())
	assert.Equal(t, http.StatusInternalServerError, (&Error{Code: "other"}).Status())
}

func TestFrom(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Validation("mode is invalid"))
	assert.Equal(t, CodeValidation, From(wrapped).Code)

	cause := errors.New("disk on fire")
	internal := From(cause)
	assert.Equal(t, CodeInternal, internal.Code)
	assert.ErrorIs(t, internal, cause)
}
