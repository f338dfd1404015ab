// Package security provides shared security validation functions.
package security

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateLinkURL checks a link destination coming from editable block
// content (hero buttons, promo banners, menu items). Relative paths and
// fragments are always fine; absolute URLs must be http or https. Everything
// else (javascript:, data:, vbscript:, ...) is rejected so pasted content
// cannot smuggle script into a rendered page.
func ValidateLinkURL(raw string) error {
	if raw == "" {
		return nil
	}

	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch parsed.Scheme {
	case "", "http", "https", "mailto", "tel":
		return nil
	}
	return fmt.Errorf("URL scheme must be http, https, mailto, or tel, got %q", parsed.Scheme)
}

// SafeLinkURL returns the link if it passes ValidateLinkURL, or "#" so a bad
// destination degrades to a dead link instead of breaking the page.
func SafeLinkURL(raw string) string {
	if err := ValidateLinkURL(raw); err != nil {
		return "#"
	}
	return strings.TrimSpace(raw)
}
