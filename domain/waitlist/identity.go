package waitlist

import (
	"strings"

	"github.com/seirennn/tradeworkstation-waitlist/pkg/constants"
)

// ExtractIdentity keys the submission quota on the first X-Forwarded-For entry.
// Callers without one share the "unknown" bucket.
//
// The header is taken as sent, so a client can pick its own identity unless the edge
// proxy overwrites it.
func ExtractIdentity(forwardedFor string) string {
	first, _, _ := strings.Cut(forwardedFor, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return constants.UnknownIdentity
	}
	return first
}
