/*
Copyright (C) 2023  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package authtoken is the room hub's auth boundary: callers hand it a
// bearer token lifted off the upgrade request, and get back the UserData it
// names or an error. Session/account management itself is out of scope
// (spec.md 6 describes auth as consumed, not implemented, by the board
// system) — this package only verifies and mints the HMAC-signed token the
// rest of the deployment is assumed to issue.
package authtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// UserData identifies the human behind a connection.
type UserData struct {
	ID       uint64
	Username string
}

// Verifier mints and checks bearer tokens for UserData. Implemented by
// HMACKey below; a deployment wanting OAuth/SSO tokens instead implements
// its own.
type Verifier interface {
	Sign(data UserData) (string, error)
	Verify(token string) (UserData, error)
}

var (
	ErrMalformedToken = errors.New("authtoken: malformed token")
	ErrBadSignature   = errors.New("authtoken: signature mismatch")
)

// HMACKey is a Verifier over HMAC-SHA256-signed `base64(payload).base64(mac)`
// tokens, the Go analogue of the original deployment's hmac-sha256 JWT.
type HMACKey struct {
	secret []byte
}

// NewHMACKey builds a Verifier from a shared secret (spec.md 6 names the
// deployment as owning secret distribution; this just consumes it).
func NewHMACKey(secret []byte) *HMACKey {
	return &HMACKey{secret: secret}
}

type claims struct {
	Sub string `json:"sub"`
	ID  uint64 `json:"id"`
}

func (k *HMACKey) Sign(data UserData) (string, error) {
	payload, err := json.Marshal(claims{Sub: data.Username, ID: data.ID})
	if err != nil {
		return "", err
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payload)
	mac := k.sign([]byte(payloadB64))
	return payloadB64 + "." + base64.RawURLEncoding.EncodeToString(mac), nil
}

func (k *HMACKey) Verify(token string) (UserData, error) {
	dot := -1
	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return UserData{}, ErrMalformedToken
	}
	payloadB64, macB64 := token[:dot], token[dot+1:]

	gotMAC, err := base64.RawURLEncoding.DecodeString(macB64)
	if err != nil {
		return UserData{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	wantMAC := k.sign([]byte(payloadB64))
	if subtle.ConstantTimeCompare(gotMAC, wantMAC) != 1 {
		return UserData{}, ErrBadSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return UserData{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return UserData{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return UserData{ID: c.ID, Username: c.Sub}, nil
}

func (k *HMACKey) sign(data []byte) []byte {
	mac := hmac.New(sha256.New, k.secret)
	mac.Write(data)
	return mac.Sum(nil)
}
