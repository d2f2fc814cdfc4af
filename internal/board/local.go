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

// ClientObserver is the client-side graphics backend LocalBoard drives: it
// creates GPU texture handles and image handles and hands back opaque
// internal ids LocalBoard never interprets, only stores (spec.md 4.6).
type ClientObserver interface {
	// CreateTexture decodes image bytes and returns a graphics-backend
	// texture handle, or ok=false if decoding failed (spec.md 4.6 step 2:
	// the whole new_image call aborts when this happens).
	CreateTexture(data []byte) (internalID uint64, ok bool)
	// NewImage places a textured quad and returns its graphics handle.
	NewImage(x, y float64, textureInternalID uint64) (imageInternalID uint64)
}

// LocalBoard is the client-side mirror of the room's board: it replays
// server events, and translates between the room's global identifiers and
// the client's local graphics handles, re-keying its bookkeeping the moment
// a submission is confirmed (spec.md 4.6).
type LocalBoard struct {
	state                     Board[ObjectIdentifier]
	textureInternalIDs        *bimap
	imageInternalIDs          map[ObjectIdentifier]uint64
	localIDCounter            uint64
}

func NewLocalBoard() *LocalBoard {
	return &LocalBoard{
		state:              NewLocalState(),
		textureInternalIDs: newBimap(),
		imageInternalIDs:   make(map[ObjectIdentifier]uint64),
	}
}

func (l *LocalBoard) nextLocalID() uint64 {
	l.localIDCounter++
	return l.localIDCounter
}

// Load performs the initial sync from a freshly-joined server board: every
// texture is created first (so image placements can reference a handle),
// then every image is placed (spec.md 4.6 Load).
func (l *LocalBoard) Load(serverState Board[uint64], observer ClientObserver) {
	serverState.Textures.Ascend(func(globalID uint64, data []byte) bool {
		internalID, ok := observer.CreateTexture(data)
		if !ok {
			panic("board: texture from the server must always be decodable")
		}
		l.textureInternalIDs.insert(GlobalID(globalID), internalID)
		return true
	})

	serverState.Objects.Ascend(func(globalID uint64, obj BoardObject[uint64]) bool {
		switch obj.Kind {
		case KindImage:
			img := obj.Image
			textureID := GlobalID(img.Texture)
			imgID := GlobalID(img.ID)
			textureInternalID, ok := l.textureInternalIDs.getRight(textureID)
			if !ok {
				panic("board: texture must exist before its image is loaded")
			}
			imgInternalID := observer.NewImage(img.X, img.Y, textureInternalID)
			l.imageInternalIDs[imgID] = imgInternalID
			l.state.Objects.Set(imgID, ImageObject(Image[ObjectIdentifier]{
				ID: imgID, X: img.X, Y: img.Y, Texture: textureID,
			}))
		case KindLine:
			// placeholder variant; nothing to render yet (spec.md 3, 9).
		}
		return true
	})
}

// NewImage is called when the user pastes a file: it allocates a local id,
// asks the observer to create a texture and image handle, and returns the
// Action to send to the server (spec.md 4.6).
func (l *LocalBoard) NewImage(x, y float64, data []byte, observer ClientObserver) (Action, bool) {
	imgLocalID := l.nextLocalID()
	imgID := LocalID(imgLocalID)

	internalID, ok := observer.CreateTexture(data)
	if !ok {
		return Action{}, false
	}

	var texture Texture[ObjectIdentifier]
	if existingTexID, ok := l.textureInternalIDs.getLeft(internalID); ok {
		texture = ExistingTexture(existingTexID)
	} else {
		texLocalID := LocalID(l.nextLocalID())
		l.textureInternalIDs.insert(texLocalID, internalID)
		texture = NewTexture(texLocalID, data)
	}

	imgInternalID := observer.NewImage(x, y, internalID)
	l.imageInternalIDs[imgID] = imgInternalID

	l.state.Objects.Set(imgID, ImageObject(Image[ObjectIdentifier]{
		ID: imgID, X: x, Y: y, Texture: texture.GetID(),
	}))

	return Action{X: x, Y: y, LocalID: imgLocalID, Texture: texture}, true
}

// ApplyEvent replays a server event into the local mirror (spec.md 4.6).
func (l *LocalBoard) ApplyEvent(event Event, observer ClientObserver) {
	switch event.Kind {
	case EventNewImage:
		imgID := GlobalID(event.ID)
		textureID := GlobalID(event.Texture.GetID())
		textureInternalID := l.createOrGetTextureInternalID(event.Texture, observer)

		imgInternalID := observer.NewImage(event.X, event.Y, textureInternalID)
		l.imageInternalIDs[imgID] = imgInternalID

		l.state.Objects.Set(imgID, ImageObject(Image[ObjectIdentifier]{
			ID: imgID, X: event.X, Y: event.Y, Texture: textureID,
		}))

	case EventConfirmImage:
		imgOldID := LocalID(event.LocalID)
		imgNewID := GlobalID(event.GlobalID)
		texNewID := GlobalID(event.TextureID)

		obj, ok := l.state.Objects.Delete(imgOldID)
		if !ok || obj.Kind != KindImage {
			panic("board: ConfirmImage for unknown local image")
		}
		texOldID := obj.Image.Texture

		internalImgID, ok := l.imageInternalIDs[imgOldID]
		if !ok {
			panic("board: ConfirmImage for image with no internal handle")
		}
		delete(l.imageInternalIDs, imgOldID)
		l.imageInternalIDs[imgNewID] = internalImgID

		l.textureInternalIDs.rekeyLeft(texOldID, texNewID)

		l.state.Objects.Set(imgNewID, ImageObject(Image[ObjectIdentifier]{
			ID: imgNewID, X: obj.Image.X, Y: obj.Image.Y, Texture: texNewID,
		}))
	}
}

func (l *LocalBoard) createOrGetTextureInternalID(tex Texture[uint64], observer ClientObserver) uint64 {
	if !tex.Existing {
		internalID, ok := observer.CreateTexture(tex.Data)
		if !ok {
			panic("board: texture from the server must always be decodable")
		}
		l.textureInternalIDs.insert(GlobalID(tex.ID), internalID)
		return internalID
	}
	internalID, ok := l.textureInternalIDs.getRight(GlobalID(tex.ID))
	if !ok {
		panic("board: Existing texture referenced before a New event introduced it")
	}
	return internalID
}
