package domain

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// CredentialState is where an identity sits in the authorization lifecycle
type CredentialState string

const (
	CredentialUnauthenticated CredentialState = "unauthenticated"
	CredentialPending         CredentialState = "pending"
	CredentialAuthenticated   CredentialState = "authenticated"
	CredentialRefreshing      CredentialState = "refreshing"
)

// Credential is an OAuth access/refresh token pair for one provider identity
type Credential struct {
	Identity     string    `json:"identity"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	TokenType    string    `json:"tokenType,omitempty"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Expired reports whether the access token is unusable at now.
// A zero expiry never expires.
func (c *Credential) Expired(now time.Time) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Before(c.Expiry.Add(-10 * time.Second))
}

// CredentialKey is the stable persistence key for an identity
func CredentialKey(identity string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(identity))))
	return "token_" + hex.EncodeToString(sum[:])
}
