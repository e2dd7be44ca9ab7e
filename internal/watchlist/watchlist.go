package watchlist

import "time"

// FaceType classifies a watchlist entry as someone to alert on sight
// (blacklist) or someone whose absence is the alert condition (whitelist).
type FaceType string

const (
	Blacklist FaceType = "blacklist"
	Whitelist FaceType = "whitelist"
)

// Valid reports whether t is one of the two known face types.
func (t FaceType) Valid() bool {
	return t == Blacklist || t == Whitelist
}

// Entry is an enrolled identity: a name plus its reference face embedding.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Embedding []float32 `json:"-"`
	Type      FaceType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
