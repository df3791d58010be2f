package trees

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// inviteTokenBytes is the entropy of an invite token (256 bits). The token is
// the sole private-access credential besides ownership, so it must be
// unguessable.
const inviteTokenBytes = 32

// NewInviteToken generates a fresh unguessable invite token
func NewInviteToken() (string, error) {
	raw := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// slugify turns a tree name into a URL-safe slug. A short random suffix is
// appended by the caller on collision.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// slugSuffix returns a short random suffix for de-duplicating slugs
func slugSuffix() (string, error) {
	raw := make([]byte, 4)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate slug suffix: %w", err)
	}
	return strings.ToLower(base64.RawURLEncoding.EncodeToString(raw)[:6]), nil
}
