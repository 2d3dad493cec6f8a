package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesAppErrorCode(t *testing.T) {
	base := UnsupportedConfiguration("no processor for format angular", nil)
	wrapped := Wrap(base, "failed to create export job")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCodeUnsupportedConfiguration, wrapped.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, wrapped.HTTPStatus)
	assert.True(t, IsUnsupportedConfiguration(wrapped))
	assert.False(t, IsRetryable(wrapped))
}

func TestWrapPlainErrorBecomesInternal(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("disk full"), "save job")

	assert.Equal(t, ErrCodeInternalError, wrapped.Code)
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(wrapped))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestUpstreamErrorsAreRetryable(t *testing.T) {
	timeout := UpstreamTimeout("plan stage timed out", context.DeadlineExceeded)

	assert.True(t, IsRetryable(timeout))
	assert.True(t, errors.Is(timeout, context.DeadlineExceeded))
	assert.Equal(t, http.StatusGatewayTimeout, GetHTTPStatus(timeout))
	assert.True(t, IsRetryable(Upstream("model failed", nil)))
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("export job", "j1")))
	assert.True(t, IsBadRequest(ValidationError("artifacts", "must not be empty")))
	assert.True(t, IsBadRequest(BadRequest("bad")))
	assert.True(t, IsConflict(Conflict("not ready")))
	assert.False(t, IsNotFound(Conflict("x")))
	assert.Contains(t, NotFound("pack", "p1").Error(), "pack with id 'p1' not found")
}
