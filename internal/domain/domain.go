// Package domain contains entity without logic, just meta-data.
package domain

type (
	// UserID is a stable user identity, opaque to the relay. One identity
	// may own any number of concurrent sessions.
	UserID string

	// RoomID names a logical channel sessions join for broadcast
	// addressing. Rooms exist implicitly while they have members.
	RoomID string
)

type User struct {
	ID   UserID `json:"_id"`
	Name string `json:"name"`
}
