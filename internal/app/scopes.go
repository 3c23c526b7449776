package app

import "github.com/ErikKalkoken/go-set"

// SSO scopes requested when authorizing a character.
// The list is versioned by the provider and must match its route definitions.
var esiScopes = []string{
	"esi-skills.read_skills.v1",
	"esi-fittings.read_fittings.v1",
	"esi-fittings.write_fittings.v1",
}

// Scopes returns the SSO scopes required by this app.
func Scopes() set.Set[string] {
	return set.Of(esiScopes...)
}

// ScopesSlice returns the required scopes in their canonical order.
func ScopesSlice() []string {
	s := make([]string, len(esiScopes))
	copy(s, esiScopes)
	return s
}
