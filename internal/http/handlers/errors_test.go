package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/identitysvc/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		want int
	}{
		{domain.KindInvalidInput, http.StatusBadRequest},
		{domain.KindUnauthorized, http.StatusUnauthorized},
		{domain.KindForbidden, http.StatusForbidden},
		{domain.KindNotFound, http.StatusNotFound},
		{domain.KindConflict, http.StatusConflict},
		{domain.KindExpired, http.StatusGone},
		{domain.KindLocked, http.StatusLocked},
		{domain.KindRateLimited, http.StatusTooManyRequests},
		{domain.KindInternal, http.StatusInternalServerError},
		{domain.Kind("mystery"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func renderBody(t *testing.T, err error, production bool) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RenderError(c, err, production)
	assert.True(t, c.IsAborted())

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body["error"]
}

func TestRenderError(t *testing.T) {
	t.Run("typed error", func(t *testing.T) {
		status, body := renderBody(t, domain.ErrOTPExpired, true)
		assert.Equal(t, http.StatusGone, status)
		assert.Equal(t, "expired", body["kind"])
		assert.Equal(t, "otp_expired", body["reason"])
		assert.Equal(t, "verification code has expired", body["message"])
	})

	t.Run("internal detail hidden in production", func(t *testing.T) {
		status, body := renderBody(t, domain.Internal("signup.create", errors.New("pq: connection refused")), true)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "internal error", body["message"])
		assert.NotContains(t, body, "detail")
		assert.NotContains(t, body, "stack")
	})

	t.Run("internal detail shown outside production", func(t *testing.T) {
		_, body := renderBody(t, domain.Internal("signup.create", errors.New("pq: connection refused")), false)
		assert.Contains(t, body["detail"], "pq: connection refused")
		assert.NotEmpty(t, body["stack"])
	})

	t.Run("untyped error", func(t *testing.T) {
		status, body := renderBody(t, errors.New("boom"), true)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "internal", body["kind"])
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"  Bearer   abc  ", "abc", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
