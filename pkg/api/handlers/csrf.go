package handlers

import (
	"net/http"

	"github.com/geobim/geobim/internal/logger"
	"github.com/geobim/geobim/pkg/api/middleware"
)

// CSRFHandler issues double-submit tokens.
type CSRFHandler struct {
	secureCookies bool
}

// NewCSRFHandler creates a CSRF token handler. secureCookies should be true
// in production so the cookie is only sent over HTTPS.
func NewCSRFHandler(secureCookies bool) *CSRFHandler {
	return &CSRFHandler{secureCookies: secureCookies}
}

// Issue handles GET /csrf-token: generates a fresh token, sets it as a
// client-readable cookie and returns it in the body.
func (h *CSRFHandler) Issue(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.GenerateCSRFToken()
	if err != nil {
		logger.Error("failed to generate CSRF token", logger.KeyError, err)
		InternalError(w)
		return
	}

	middleware.SetCSRFCookie(w, token, h.secureCookies)
	WriteJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}
