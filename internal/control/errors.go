package control

import (
	"fmt"
	"strings"
)

// NoHostsAvailable is returned when every candidate IP in a ConnectAsync
// attempt (or every candidate in a reconnect attempt) failed, carrying the
// last recorded error for each (spec §6, §7).
type NoHostsAvailable struct {
	Errors map[string]error
}

func (e NoHostsAvailable) Error() string {
	if len(e.Errors) == 0 {
		return "no hosts available: no candidates attempted"
	}
	parts := make([]string, 0, len(e.Errors))
	for ip, err := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %v", ip, err))
	}
	return "no hosts available: " + strings.Join(parts, "; ")
}

// AuthenticationError is returned when the server rejects credentials, or
// when the negotiated protocol version cannot carry a challenge-response
// exchange (spec §4.1.3 step 3, §6).
type AuthenticationError struct {
	Message string
}

func (e AuthenticationError) Error() string {
	return "authentication error: " + e.Message
}

var errEmptyCluster = fmt.Errorf("system.local returned no row")
