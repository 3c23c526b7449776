package app

import (
	"time"

	"github.com/ErikKalkoken/go-set"

	"github.com/ErikKalkoken/evefit/internal/optional"
)

// TokenStatus reports where a character's credential is in its lifecycle.
type TokenStatus uint

const (
	TokenUnauthenticated TokenStatus = iota // no usable refresh token. Needs a new authorization
	TokenActive                             // access token is valid
	TokenStale                              // access token expired, but can be refreshed
)

func (s TokenStatus) String() string {
	switch s {
	case TokenActive:
		return "active"
	case TokenStale:
		return "stale"
	}
	return "unauthenticated"
}

// CharacterToken is a SSO token belonging to a character in Eve Online.
//
// The refresh token is only ever held encrypted.
// The access token lives in memory only and is never persisted.
type CharacterToken struct {
	AccessToken   string
	CharacterID   int32
	CharacterName string
	ExpiresAt     time.Time
	RefreshedAt   optional.Optional[time.Time] // last time a new access token was issued
	RefreshToken  []byte                       // encrypted
	Scopes        set.Set[string]
	TokenType     string
}

// IsExpired reports whether the access token is missing or has expired.
func (ct *CharacterToken) IsExpired() bool {
	return !ct.RemainsValid(0)
}

// RemainsValid reports whether a token remains valid within a duration.
func (ct *CharacterToken) RemainsValid(d time.Duration) bool {
	return ct.AccessToken != "" && ct.ExpiresAt.After(time.Now().Add(d))
}

// HasRefreshToken reports whether the token holds an encrypted refresh token.
func (ct *CharacterToken) HasRefreshToken() bool {
	return len(ct.RefreshToken) > 0
}

// HasScopes reports whether all given scopes have been granted.
func (ct *CharacterToken) HasScopes(scopes set.Set[string]) bool {
	return ct.Scopes.ContainsAll(scopes.All())
}

// Status returns the current lifecycle status of a token.
func (ct *CharacterToken) Status() TokenStatus {
	if !ct.HasRefreshToken() {
		if !ct.IsExpired() {
			return TokenActive
		}
		return TokenUnauthenticated
	}
	if ct.IsExpired() {
		return TokenStale
	}
	return TokenActive
}

// VerifiedCharacter is the identity behind an access token
// as reported by the verify endpoint.
type VerifiedCharacter struct {
	CharacterID   int32  `json:"CharacterID"`
	CharacterName string `json:"CharacterName"`
	ExpiresOn     string `json:"ExpiresOn"`
	OwnerHash     string `json:"CharacterOwnerHash"`
	Scopes        string `json:"Scopes"`
	TokenType     string `json:"TokenType"`
}
