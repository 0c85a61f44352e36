package errors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jw6ventures/fitverse/internal/api"
)

func TestUpstreamStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&api.Error{Status: 404, Err: api.ErrNotFound}, http.StatusNotFound},
		{&api.Error{Status: 403, Err: api.ErrUnauthorized}, http.StatusForbidden},
		{&api.Error{Status: 422, Err: api.ErrValidationFailed}, http.StatusBadRequest},
		{&api.Error{Status: 409, Err: api.ErrConflict}, http.StatusBadRequest},
		{&api.Error{Err: api.ErrNetworkUnavailable}, http.StatusServiceUnavailable},
		{&api.Error{Status: 500, Err: api.ErrServerError}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusBadGateway},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, UpstreamStatus(tc.err), "%v", tc.err)
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, httptest.NewRequest(http.MethodGet, "/", nil), assert.AnError, "render failed")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
