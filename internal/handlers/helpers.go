package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// resolveBaseURL reconstructs the request origin, preferring forwarded
// headers set by the proxy in front of us.
func resolveBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if v := sanitizeProto(firstForwardedValue(r.Header.Get("X-Forwarded-Proto"))); v != "" {
		scheme = v
	}

	host := sanitizeHost(r.Host)
	if v := sanitizeHost(firstForwardedValue(r.Header.Get("X-Forwarded-Host"))); v != "" {
		host = v
	}

	if host == "" {
		host = "localhost"
	}
	return scheme + "://" + host
}

func firstForwardedValue(v string) string {
	if v == "" {
		return ""
	}
	parts := strings.Split(v, ",")
	return strings.TrimSpace(parts[0])
}

func sanitizeProto(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "http":
		return "http"
	case "https":
		return "https"
	default:
		return ""
	}
}

func sanitizeHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return ""
	}
	if strings.ContainsAny(raw, " /\\") {
		return ""
	}
	return raw
}
