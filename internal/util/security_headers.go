package util

import (
	"net/http"
	"strings"
)

// WithSecurityHeaders adds security response headers suited to a JSON API
// that also serves uploaded photos and rendered PDFs.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		// No page served here runs scripts or uses device APIs.
		w.Header().Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")
		// img-src 'self' lets a photo under /uploads/ render when opened
		// directly in a browser tab.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; frame-ancestors 'none'; base-uri 'none'")

		// HSTS only when the request arrived over HTTPS, directly or via a
		// terminating proxy.
		if r.TLS != nil || strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https") {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
