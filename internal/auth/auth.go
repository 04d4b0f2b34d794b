// Package auth is the boundary to the external identity provider.
//
// Real session management lives outside this service. Auth here means:
// verify a bearer token against a pluggable Verifier, and provision the
// user in the ledger on first sight (idempotent).
package auth

import (
	"context"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("auth: invalid token")

// Profile is the identity payload a verifier extracts from a token.
type Profile struct {
	UID       string
	Email     string
	Name      string
	AvatarURL string
}

// Verifier validates a bearer token and returns the identity behind it.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Profile, error)
}

// Provisioner is called with the verified identity so the application
// can create the user on first successful authentication.
type Provisioner interface {
	Provision(ctx context.Context, p Profile) error
}

// ProvisionFunc adapts a function to the Provisioner interface.
type ProvisionFunc func(ctx context.Context, p Profile) error

func (f ProvisionFunc) Provision(ctx context.Context, p Profile) error { return f(ctx, p) }

// StaticVerifier maps fixed tokens to profiles. Development only.
type StaticVerifier struct {
	tokens map[string]Profile
}

// NewStaticVerifier creates a verifier over a fixed token set.
func NewStaticVerifier(tokens map[string]Profile) *StaticVerifier {
	return &StaticVerifier{tokens: tokens}
}

// Verify implements Verifier.
func (v *StaticVerifier) Verify(ctx context.Context, token string) (*Profile, error) {
	p, ok := v.tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	cp := p
	return &cp, nil
}

// ParseDevUsers parses the DEV_USERS env format:
// "token:uid:email:name;token:uid:email:name". Used to seed the static
// verifier in development mode.
func ParseDevUsers(s string) (*StaticVerifier, error) {
	tokens := make(map[string]Profile)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 4)
		if len(parts) < 2 {
			return nil, errors.New("auth: DEV_USERS entries need at least token:uid")
		}
		p := Profile{UID: parts[1]}
		if len(parts) > 2 {
			p.Email = parts[2]
		}
		if len(parts) > 3 {
			p.Name = parts[3]
		}
		tokens[parts[0]] = p
	}
	return &StaticVerifier{tokens: tokens}, nil
}
