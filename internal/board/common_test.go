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
package board

import "testing"

func TestObjectIdentifierEquality(t *testing.T) {
	local3 := LocalID(3)
	global3 := GlobalID(3)
	if local3 == global3 {
		t.Fatalf("Local(3) and Global(3) must not compare equal, got %v == %v", local3, global3)
	}
	if LocalID(3) != local3 {
		t.Fatalf("two LocalID(3) values must compare equal")
	}
}

func TestTextureConstructors(t *testing.T) {
	newTex := NewTexture(uint64(1), []byte("hi"))
	if newTex.Existing {
		t.Fatalf("NewTexture must not be Existing")
	}
	if newTex.GetID() != 1 {
		t.Fatalf("GetID = %d, want 1", newTex.GetID())
	}

	existing := ExistingTexture(uint64(7))
	if !existing.Existing {
		t.Fatalf("ExistingTexture must be Existing")
	}
	if len(existing.Data) != 0 {
		t.Fatalf("ExistingTexture must carry no payload")
	}
}

func TestLineObjectRoundtrips(t *testing.T) {
	line := LineObject[uint64]()
	if line.Kind != KindLine {
		t.Fatalf("LineObject kind = %v, want KindLine", line.Kind)
	}
}
