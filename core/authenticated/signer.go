// Copyright 2025, the Synthoma Reader contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package authenticated signs and verifies the reader session cookie.

Tokens are v4.public PASETOs carrying the session ID as their subject
claim's companion string, so a reader can only ever resume the session the
server handed out.
*/
package authenticated

import (
	"errors"
	"time"

	"aidanwoods.dev/go-paseto"
)

// Implicit is the domain separation assertion. Changing it invalidates every
// issued token.
const Implicit = "Synthoma reader session"

const subject = "reader session"

// ErrNoKey is returned when signing without a loaded key.
var ErrNoKey = errors.New("no session signing key loaded")

var parser = paseto.MakeParser([]paseto.Rule{
	paseto.NotExpired(),
	paseto.Subject(subject),
})

// NewSecretKeyHex generates a fresh secret key suitable for the config file.
func NewSecretKeyHex() string {
	return paseto.NewV4AsymmetricSecretKey().ExportHex()
}

// Signer holds a v4.public key pair.
type Signer struct {
	secretKey paseto.V4AsymmetricSecretKey
	loaded    bool
}

// LoadSecretKeyFromHex replaces the signing key.
func (s *Signer) LoadSecretKeyFromHex(hex string) error {
	key, err := paseto.NewV4AsymmetricSecretKeyFromHex(hex)
	if err != nil {
		return err
	}

	s.secretKey = key
	s.loaded = true

	return nil
}

// UseEphemeralKey generates a key that lives only as long as the process.
func (s *Signer) UseEphemeralKey() {
	s.secretKey = paseto.NewV4AsymmetricSecretKey()
	s.loaded = true
}

// Loaded reports whether a key is available.
func (s *Signer) Loaded() bool {
	return s.loaded
}

// Sign issues a token for sessionID valid for ttl.
func (s *Signer) Sign(sessionID string, ttl time.Duration) (string, error) {
	if !s.loaded {
		return "", ErrNoKey
	}

	token := paseto.NewToken()
	token.SetIssuedAt(time.Now())
	token.SetExpiration(time.Now().Add(ttl))
	token.SetSubject(subject)
	token.SetString("sid", sessionID)

	return token.V4Sign(s.secretKey, []byte(Implicit)), nil
}

// Verify returns the session ID carried by an unexpired token.
func (s *Signer) Verify(signed string) (string, error) {
	if !s.loaded {
		return "", ErrNoKey
	}

	token, err := parser.ParseV4Public(s.secretKey.Public(), signed, []byte(Implicit))
	if err != nil {
		return "", err
	}

	return token.GetString("sid")
}
