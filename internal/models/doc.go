// Package models defines the domain entities shared across the player engine.
//
// The package contains plain data types with no I/O:
//   - [Song] : a playable track, remote or locally backed
//   - [User] : an authenticated identity from the remote store
//   - [TrackRecord] : the backend's persisted representation of a track
//
// A [Song] in the library belongs to exactly one owner; the guest owner is the
// [GuestOwnerID] sentinel and guest songs only ever reference local resources.
package models
