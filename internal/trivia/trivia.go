// Package trivia defines the core domain types shared by the game, the
// board provisioning routine and the HTTP layer.
// It has no external dependencies.
package trivia

import (
	"fmt"
	"strings"
)

// PointTiers are the five board rows, in display order.
var PointTiers = [...]int{100, 200, 300, 400, 500}

// CategoriesPerBoard is how many categories a round is played with.
const CategoriesPerBoard = 5

// GuestID is the player identifier used when nobody is signed in.
const GuestID = "Guest"

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Group    string `json:"group"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Status string

const (
	StatusUnplayed          Status = "unplayed"
	StatusAnsweredCorrect   Status = "answered-correct"
	StatusAnsweredIncorrect Status = "answered-incorrect"
	StatusOutOfStock        Status = "out-of-stock"
)

// Resolved reports whether the cell no longer counts towards the round.
func (s Status) Resolved() bool {
	return s != StatusUnplayed
}

type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
	MediaImage MediaKind = "image"
)

// ParseMediaKind accepts the English or Arabic tokens the inventory uses.
// Anything unrecognised is treated as an image.
func ParseMediaKind(s string) MediaKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "audio", "صوت":
		return MediaAudio
	case "video", "فيديو":
		return MediaVideo
	default:
		return MediaImage
	}
}

type Media struct {
	Kind MediaKind `json:"kind"`
	URL  string    `json:"url"`
}

type Source struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri"`
}

type Question struct {
	ID            string   `json:"id"`
	CategoryID    string   `json:"categoryId"`
	Points        int      `json:"points"`
	QuestionText  string   `json:"questionText"`
	AnswerText    string   `json:"answerText"`
	Status        Status   `json:"status"`
	Media         *Media   `json:"media,omitempty"`
	Sources       []Source `json:"sources,omitempty"`
	IsEnumeration bool     `json:"isEnumeration,omitempty"`
}

// CellID builds the composite board key for a category and point tier.
func CellID(categoryID string, points int) string {
	return fmt.Sprintf("%s-%d", categoryID, points)
}

// Player is the identity every inventory call is scoped by.
type Player struct {
	ID          string
	AccessToken string
}

func (p Player) IsGuest() bool {
	return p.ID == "" || p.ID == GuestID
}

// Guest returns the sentinel identity for unauthenticated callers.
func Guest() Player {
	return Player{ID: GuestID}
}
