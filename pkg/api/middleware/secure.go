// Package middleware provides the edge-gateway policies applied in front of
// every route: HTTPS enforcement, security headers, response compression,
// per-IP rate limiting and double-submit CSRF protection.
package middleware

import (
	"net/http"
)

// contentSecurityPolicy allows the app itself plus the Cesium ion assets the
// globe client loads from a third-party origin.
const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' 'unsafe-eval' https://cesium.com; " +
	"style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' data: blob: https://*.cesium.com; " +
	"connect-src 'self' https://*.cesium.com https://api.cesium.com; " +
	"worker-src 'self' blob:; " +
	"frame-ancestors 'none'"

// HTTPSRedirect returns a middleware that 301-redirects plain HTTP requests
// to their HTTPS equivalent. When trustedProxy is set, an
// X-Forwarded-Proto header from the immediate peer is honoured; otherwise
// only the connection's own TLS state counts.
func HTTPSRedirect(trustedProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isSecure(r, trustedProxy) {
				target := "https://" + r.Host + r.URL.RequestURI()
				http.Redirect(w, r, target, http.StatusMovedPermanently)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isSecure(r *http.Request, trustedProxy bool) bool {
	if r.TLS != nil {
		return true
	}
	if trustedProxy && r.Header.Get("X-Forwarded-Proto") == "https" {
		return true
	}
	return false
}

// SecurityHeaders sets the strict response headers expected by the globe
// client deployment: CSP, clickjacking denial, referrer trimming and MIME
// sniffing protection.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", contentSecurityPolicy)
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin")
		next.ServeHTTP(w, r)
	})
}
