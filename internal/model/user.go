// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Name is the unique login handle (2-20 characters). Bio and AvatarURL feed
// the AuthorSummary shown on search results; Links are the profile's social
// links. PasswordHash is an argon2id encoded hash and is never serialized.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio"`
	AvatarURL    string    `json:"avatarUrl"`
	Links        []string  `json:"links"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MaxBioLength bounds the profile bio.
const MaxBioLength = 250

// Summary returns the public profile slice attached to snippets.
func (u *User) Summary() AuthorSummary {
	return AuthorSummary{Name: u.Name, Bio: u.Bio, AvatarURL: u.AvatarURL}
}

// Viewer identifies who is looking: an authenticated user or anonymous.
// The zero value is anonymous. Viewers exist only to compute visibility and
// the "liked by me" flag.
type Viewer struct {
	UserID int64
}

// Anonymous reports whether the viewer carries no identity.
func (v Viewer) Anonymous() bool { return v.UserID == 0 }

// ViewerFor builds a Viewer for an authenticated user id.
func ViewerFor(userID int64) Viewer { return Viewer{UserID: userID} }

// AccessMode selects which visibility rule a query runs under.
type AccessMode int

const (
	// AccessPublicAndPermitted returns everything the viewer may see:
	// public snippets, their own, and those they were granted.
	AccessPublicAndPermitted AccessMode = iota

	// AccessOwnerOnly restricts strictly to the viewer's own snippets,
	// ignoring public visibility and grants. It is a distinct mode, not a
	// relaxation of the visibility predicate.
	AccessOwnerOnly
)
