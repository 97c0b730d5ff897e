package websocket

import (
	"slices"
)

// clientWhitelist contains the set of frame types clients are allowed to send.
// Outbound-only types (users) stay off the list so a client cannot forge a
// roster snapshot for everyone else. The set is fixed at construction.
type clientWhitelist struct {
	allowed []string
}

// NewClientWhitelist creates a new whitelist with the given allowed frame types
func NewClientWhitelist(allowed ...string) *clientWhitelist {
	valid := make([]string, 0, len(allowed))
	for _, t := range allowed {
		if t != "" {
			valid = append(valid, t)
		}
	}

	return &clientWhitelist{
		allowed: valid,
	}
}

// IsAllowed checks if a frame type is in the whitelist
func (w *clientWhitelist) IsAllowed(frameType string) bool {
	if frameType == "" {
		return false
	}
	return slices.Contains(w.allowed, frameType)
}
