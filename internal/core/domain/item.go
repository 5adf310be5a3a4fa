package domain

import (
	"fmt"
	"strings"
)

// ItemKind tags the variant of a catalog item.
type ItemKind string

const (
	KindBook      ItemKind = "book"
	KindCD        ItemKind = "cd"
	KindDVD       ItemKind = "dvd"
	KindAudiobook ItemKind = "audiobook"
)

var itemKindNames = map[ItemKind]string{
	KindBook:      "Book",
	KindCD:        "CD",
	KindDVD:       "DVD",
	KindAudiobook: "Audiobook",
}

// ItemKinds lists every kind in catalog order.
func ItemKinds() []ItemKind {
	return []ItemKind{KindBook, KindCD, KindDVD, KindAudiobook}
}

// ParseItemKind accepts either the wire value ("cd") or the display name ("CD"),
// case-insensitively.
func ParseItemKind(s string) (ItemKind, error) {
	k := ItemKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := itemKindNames[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownItemKind, s)
	}
	return k, nil
}

// Name is the display name used in reports.
func (k ItemKind) Name() string {
	if n, ok := itemKindNames[k]; ok {
		return n
	}
	return string(k)
}

// Item is a circulating catalog entry. Only ID, Title and the availability
// flag matter for lending; the remaining fields are descriptive.
type Item struct {
	ID        int      `json:"id" bson:"_id"`
	Title     string   `json:"title" bson:"title"`
	Kind      ItemKind `json:"kind" bson:"kind"`
	Available bool     `json:"available" bson:"available"`

	Author   string `json:"author,omitempty" bson:"author,omitempty"`
	ISBN     string `json:"isbn,omitempty" bson:"isbn,omitempty"`
	Genre    string `json:"genre,omitempty" bson:"genre,omitempty"`
	Composer string `json:"composer,omitempty" bson:"composer,omitempty"`
	Director string `json:"director,omitempty" bson:"director,omitempty"`
	Narrator string `json:"narrator,omitempty" bson:"narrator,omitempty"`
}

func NewBook(id int, title, author, isbn, genre string) *Item {
	return &Item{ID: id, Title: title, Kind: KindBook, Available: true, Author: author, ISBN: isbn, Genre: genre}
}

func NewCD(id int, title, composer string) *Item {
	return &Item{ID: id, Title: title, Kind: KindCD, Available: true, Composer: composer}
}

func NewDVD(id int, title, director string) *Item {
	return &Item{ID: id, Title: title, Kind: KindDVD, Available: true, Director: director}
}

func NewAudiobook(id int, title, narrator string) *Item {
	return &Item{ID: id, Title: title, Kind: KindAudiobook, Available: true, Narrator: narrator}
}

func (i *Item) IsAvailable() bool { return i.Available }

// SetAvailable is an unconditional write; keeping it consistent with the
// loans referencing the item is the caller's job.
func (i *Item) SetAvailable(available bool) { i.Available = available }

// Describe renders "ID: 1 | Title: X | Status: Available" plus a kind suffix.
func (i *Item) Describe() string {
	status := "Available"
	if !i.Available {
		status = "Checked Out"
	}
	base := fmt.Sprintf("ID: %d | Title: %s | Status: %s", i.ID, i.Title, status)

	switch i.Kind {
	case KindBook:
		return base + " | Book by " + i.Author + " (" + i.Genre + ")"
	case KindCD:
		return base + " | Composer: " + i.Composer
	case KindDVD:
		return base + " | Director: " + i.Director
	case KindAudiobook:
		return base + " | Narrator: " + i.Narrator
	default:
		return base
	}
}
