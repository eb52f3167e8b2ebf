package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Double-submit cookie CSRF protection. The token travels both as a
// JavaScript-readable cookie and as a request header; a cross-origin
// attacker can force the cookie to be sent but cannot read it to set the
// header.
const (
	// CSRFCookieName is the cookie carrying the double-submit token.
	CSRFCookieName = "csrf_token"

	// CSRFHeaderName is the primary header clients echo the token in.
	CSRFHeaderName = "X-CSRF-Token"

	// CSRFAltHeaderName is an accepted alternative header spelling.
	CSRFAltHeaderName = "CSRF-Token"

	// CSRFTokenTTL is the cookie lifetime.
	CSRFTokenTTL = time.Hour
)

// Machine-readable CSRF rejection codes.
const (
	CodeCSRFCookieMissing = "CSRF_COOKIE_MISSING"
	CodeCSRFHeaderMissing = "CSRF_HEADER_MISSING"
	CodeCSRFTokenMismatch = "CSRF_TOKEN_MISMATCH"
)

// GenerateCSRFToken returns a fresh 32-byte random token, base64url encoded.
func GenerateCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SetCSRFCookie writes the token cookie. The cookie is deliberately not
// httpOnly: the client must read it to echo the value in a header.
func SetCSRFCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(CSRFTokenTTL.Seconds()),
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
	})
}

// CSRFProtect verifies the double-submit pair on every non-safe method.
// GET, HEAD and OPTIONS pass through untouched.
func CSRFProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(CSRFCookieName)
		if err != nil || cookie.Value == "" {
			writeCSRFError(w, CodeCSRFCookieMissing, "CSRF cookie missing")
			return
		}

		header := r.Header.Get(CSRFHeaderName)
		if header == "" {
			header = r.Header.Get(CSRFAltHeaderName)
		}
		if header == "" {
			writeCSRFError(w, CodeCSRFHeaderMissing, "CSRF token header missing")
			return
		}

		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
			writeCSRFError(w, CodeCSRFTokenMismatch, "CSRF token mismatch")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeCSRFError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
