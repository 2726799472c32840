package middleware

import "net/http"

// SecurityHeaders sets baseline response headers. The camera permission
// stays self so the in-browser scanner keeps working; everything else is
// locked down.
type SecurityHeaders struct {
	// Secure enables HSTS; leave false when serving plain HTTP locally.
	Secure bool
}

func NewSecurityHeaders(secure bool) *SecurityHeaders {
	return &SecurityHeaders{Secure: secure}
}

func (sh *SecurityHeaders) Apply(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "camera=(self), microphone=(), geolocation=()")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'")
		if sh.Secure {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
