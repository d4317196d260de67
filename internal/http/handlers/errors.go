package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/you/identitysvc/domain"
)

var kindStatus = map[domain.Kind]int{
	domain.KindInvalidInput: http.StatusBadRequest,
	domain.KindUnauthorized: http.StatusUnauthorized,
	domain.KindForbidden:    http.StatusForbidden,
	domain.KindNotFound:     http.StatusNotFound,
	domain.KindConflict:     http.StatusConflict,
	domain.KindExpired:      http.StatusGone,
	domain.KindLocked:       http.StatusLocked,
	domain.KindRateLimited:  http.StatusTooManyRequests,
	domain.KindInternal:     http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind domain.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RenderError writes err as {"error": {kind, reason, message}} and aborts the
// chain. Outside production the body also carries the internal detail and stack.
func RenderError(c *gin.Context, err error, production bool) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.Internal("http", err).(*domain.Error)
	}

	body := gin.H{
		"kind":    de.Kind,
		"reason":  de.Reason,
		"message": de.Message,
	}
	if !production && de.Err != nil {
		body["detail"] = de.Err.Error()
		if oopsErr, ok := oops.AsOops(de.Err); ok {
			body["stack"] = oopsErr.Stacktrace()
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusFor(de.Kind), gin.H{"error": body})
}

// bindError wraps a request decoding failure as invalid input
func bindError(err error) error {
	return &domain.Error{
		Kind:    domain.KindInvalidInput,
		Reason:  domain.ErrInvalidInput.Reason,
		Message: "invalid request body",
		Err:     err,
	}
}
