package eveauth

import (
	"fmt"
	"strings"
)

// SSOMode determines how the client identifies itself at the token endpoint.
type SSOMode uint

const (
	// ModeManaged sends only the grant parameters.
	// The client identity is handled by the SSO server.
	ModeManaged SSOMode = iota
	// ModeDirect sends the client ID and client secret as HTTP Basic credentials.
	ModeDirect
)

func (m SSOMode) String() string {
	switch m {
	case ModeManaged:
		return "managed"
	case ModeDirect:
		return "direct"
	}
	return fmt.Sprintf("SSOMode(%d)", uint(m))
}

// ParseSSOMode returns the mode for a name.
func ParseSSOMode(s string) (SSOMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "managed":
		return ModeManaged, nil
	case "direct":
		return ModeDirect, nil
	}
	return 0, fmt.Errorf("unknown SSO mode %q: %w", s, ErrInvalid)
}
