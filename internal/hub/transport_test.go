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
package hub

import (
	"net/http/httptest"
	"testing"

	"github.com/launix-de/boardmesh/internal/authtoken"
)

func TestIdentifyAnonymousMintsNameFromQueryOrUUID(t *testing.T) {
	req := httptest.NewRequest("GET", "/room/x?name=alice", nil)
	id, name, ok := identify(nil, req)
	if !ok {
		t.Fatalf("anonymous identify should always succeed")
	}
	if name != "alice" {
		t.Fatalf("name = %q, want alice", name)
	}
	_ = id

	req2 := httptest.NewRequest("GET", "/room/x", nil)
	_, name2, ok2 := identify(nil, req2)
	if !ok2 || name2 == "" {
		t.Fatalf("anonymous identify without a name must still mint a guest name, got %q ok=%v", name2, ok2)
	}
}

func TestIdentifyWithVerifierRequiresValidToken(t *testing.T) {
	key := authtoken.NewHMACKey([]byte("secret"))
	token, err := key.Sign(authtoken.UserData{ID: 7, Username: "bob"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	good := httptest.NewRequest("GET", "/room/x?token="+token, nil)
	id, name, ok := identify(key, good)
	if !ok {
		t.Fatalf("identify with a valid token should succeed")
	}
	if id != 7 || name != "bob" {
		t.Fatalf("identify = (%d, %q), want (7, bob)", id, name)
	}

	bad := httptest.NewRequest("GET", "/room/x?token=garbage", nil)
	if _, _, ok := identify(key, bad); ok {
		t.Fatalf("identify with an invalid token must fail")
	}

	missing := httptest.NewRequest("GET", "/room/x", nil)
	if _, _, ok := identify(key, missing); ok {
		t.Fatalf("identify with no token at all must fail when a verifier is configured")
	}
}
