package domain

import (
	"strings"
	"time"
)

// Category is one of the independent vote types
type Category string

const (
	CategoryKill   Category = "KILL"
	CategoryPrayer Category = "PRAYER"
)

// Categories lists every vote category in display order
func Categories() []Category {
	return []Category{CategoryKill, CategoryPrayer}
}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	return c == CategoryKill || c == CategoryPrayer
}

// ParseCategory parses a category name case-insensitively.
// "pray" is accepted as an alias for PRAYER.
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KILL":
		return CategoryKill, nil
	case "PRAYER", "PRAY":
		return CategoryPrayer, nil
	default:
		return "", ErrInvalidCategory
	}
}

// Vote represents the live vote of one voter in one category
type Vote struct {
	VoterID   string    `json:"voterId"`
	VoterName string    `json:"voterName"`
	Target    string    `json:"target"`
	Category  Category  `json:"category"`
	CastAt    time.Time `json:"castAt"`
}

// NewVote creates a new vote with a normalized target
func NewVote(voterID, voterName, target string, category Category) *Vote {
	return &Vote{
		VoterID:   voterID,
		VoterName: voterName,
		Target:    NormalizeTarget(target),
		Category:  category,
		CastAt:    time.Now().UTC(),
	}
}

// Key identifies the vote slot a vote occupies
func (v Vote) Key() string {
	return VoteKey(v.VoterID, v.Category)
}

// VoteKey builds the storage key for a voter's vote in a category
func VoteKey(voterID string, category Category) string {
	return string(category) + "|" + voterID
}

// NormalizeTarget canonicalizes a target name so comparisons are case-insensitive
func NormalizeTarget(target string) string {
	return strings.ToUpper(strings.TrimSpace(target))
}

// Voter is a voter listed under a tally entry
type Voter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TallyEntry represents the voters currently targeting one target
type TallyEntry struct {
	Target   string   `json:"target"`
	Count    int      `json:"count"`
	Voters   []Voter  `json:"voters"`
	Category Category `json:"category"`
}
