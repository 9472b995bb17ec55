package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/youruser/cardsmith/internal/ai"
	"github.com/youruser/cardsmith/internal/assets"
	"github.com/youruser/cardsmith/internal/auth"
	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/editor"
	"github.com/youruser/cardsmith/internal/export"
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/storage"
	"github.com/youruser/cardsmith/internal/template"
)

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

var statusByErr = []struct {
	err    error
	status int
}{
	{errBadRequest, http.StatusBadRequest},
	{storage.ErrValidation, http.StatusBadRequest},
	{template.ErrValidation, http.StatusBadRequest},
	{cards.ErrInvalidCard, http.StatusBadRequest},
	{ai.ErrValidation, http.StatusBadRequest},
	{assets.ErrInvalidUpload, http.StatusBadRequest},
	{layout.ErrInvalidScale, http.StatusBadRequest},
	{editor.ErrUnknownTarget, http.StatusBadRequest},
	{auth.ErrBadCredential, http.StatusUnauthorized},
	{auth.ErrUnauthorized, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{storage.ErrForbidden, http.StatusForbidden},
	{editor.ErrReadOnly, http.StatusForbidden},
	{storage.ErrNotFound, http.StatusNotFound},
	{template.ErrNotFound, http.StatusNotFound},
	{export.ErrJobNotFound, http.StatusNotFound},
	{assets.ErrBlobNotFound, http.StatusNotFound},
	{assets.ErrAssetInUse, http.StatusConflict},
	{storage.ErrConflict, http.StatusConflict},
	{export.ErrJobNotReady, http.StatusConflict},
	{editor.ErrBusy, http.StatusConflict},
	{editor.ErrNotDragging, http.StatusConflict},
	{layout.ErrNoTemplate, http.StatusUnprocessableEntity},
	{export.ErrEmptyDeck, http.StatusUnprocessableEntity},
	{ai.ErrProvider, http.StatusBadGateway},
	{ai.ErrNoProvider, http.StatusServiceUnavailable},
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	for _, m := range statusByErr {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}. Internal errors are logged and their
// detail is not sent to the client.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
