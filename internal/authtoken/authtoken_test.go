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
package authtoken

import "testing"

func TestSignVerifyRoundtrip(t *testing.T) {
	key := NewHMACKey([]byte("shared-secret"))
	token, err := key.Sign(UserData{ID: 42, Username: "alice"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	got, err := key.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.ID != 42 || got.Username != "alice" {
		t.Fatalf("Verify = %+v, want {42 alice}", got)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	key := NewHMACKey([]byte("shared-secret"))
	token, err := key.Sign(UserData{ID: 1, Username: "bob"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tampered := "x" + token
	if _, err := key.Verify(tampered); err == nil {
		t.Fatalf("Verify must reject a tampered token")
	}
}

func TestVerifyRejectsTokenSignedByAnotherKey(t *testing.T) {
	a := NewHMACKey([]byte("key-a"))
	b := NewHMACKey([]byte("key-b"))

	token, err := a.Sign(UserData{ID: 1, Username: "carol"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := b.Verify(token); err != ErrBadSignature {
		t.Fatalf("Verify with the wrong key: got %v, want ErrBadSignature", err)
	}
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	key := NewHMACKey([]byte("secret"))
	if _, err := key.Verify("not-a-token-no-dot"); err != ErrMalformedToken {
		t.Fatalf("Verify of a dot-less token: got %v, want ErrMalformedToken", err)
	}
}
