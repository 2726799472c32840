// Package deeplink maps locations and scanned payloads to card views.
// Every place a card id can be "opened" (album, top list, scan hit, the
// card page itself) routes through one Resolver so the in-page vs
// external decision is never duplicated.
package deeplink

import (
	"regexp"
	"strings"
)

// cardPathRe matches the card segment of a deep link anywhere in a path
// or URL. Identifiers are 16+ lowercase hex chars.
var cardPathRe = regexp.MustCompile(`(?i)/card/([a-f0-9]{16,})`)

// Kind discriminates route results.
type Kind int

const (
	// KindCreate is the default view: the card composer.
	KindCreate Kind = iota
	// KindCardDetail is a single card's detail view.
	KindCardDetail
)

// Route is the resolved destination for a location path.
type Route struct {
	Kind   Kind
	CardID string
}

// ParsePath maps a location path to a route. Anything that is not a card
// detail path falls back to the creation view.
func ParsePath(path string) Route {
	if m := cardPathRe.FindStringSubmatch(path); m != nil {
		return Route{Kind: KindCardDetail, CardID: strings.ToLower(m[1])}
	}
	return Route{Kind: KindCreate}
}

// MatchPayload extracts a card id from a raw scanned payload. ok is false
// when the payload carries no card deep link and should be treated as an
// opaque URL.
func MatchPayload(payload string) (id string, ok bool) {
	if m := cardPathRe.FindStringSubmatch(payload); m != nil {
		return strings.ToLower(m[1]), true
	}
	return "", false
}

// Navigation is the intent produced by opening a card: either follow URL
// in a new browsing context, or push Path onto the current history.
type Navigation struct {
	External bool
	URL      string
	Path     string
}

// Resolver holds the deployment-level routing decision. When
// PublicBaseURL is set the app runs as an embedded widget against a
// separately hosted API and card views always open externally.
type Resolver struct {
	PublicBaseURL string
}

// NewResolver trims trailing slashes so canonical links are stable.
func NewResolver(publicBaseURL string) Resolver {
	return Resolver{PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// External reports whether card views leave the current origin.
func (r Resolver) External() bool {
	return r.PublicBaseURL != ""
}

// Open resolves how a card id is presented to the user.
func (r Resolver) Open(id string) Navigation {
	if r.External() {
		return Navigation{External: true, URL: r.PublicBaseURL + "/card/" + id}
	}
	return Navigation{Path: "/card/" + id}
}

// CanonicalURL is the absolute deep link encoded into QR codes. origin is
// used when no public base URL is configured.
func (r Resolver) CanonicalURL(origin, id string) string {
	base := r.PublicBaseURL
	if base == "" {
		base = strings.TrimRight(origin, "/")
	}
	return base + "/card/" + id
}
