package models

import (
	"time"

	"github.com/google/uuid"
)

// LibraryKind is the content type of a configured library root.
type LibraryKind string

const (
	LibraryFilm       LibraryKind = "film"
	LibraryTelevision LibraryKind = "television"
	LibraryMusic      LibraryKind = "music"
)

// CollectionKind classifies a node in the per-library content tree.
type CollectionKind string

const (
	CollectionShow    CollectionKind = "show"
	CollectionSeason  CollectionKind = "season"
	CollectionFilm    CollectionKind = "film"
	CollectionArtist  CollectionKind = "artist"
	CollectionAlbum   CollectionKind = "album"
	CollectionGeneric CollectionKind = "generic"
)

// MediaKind is the playback class of a cataloged file.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// Library is a configured filesystem root. Owned by configuration; the
// ingestion core only reads it.
type Library struct {
	ID           uuid.UUID
	Name         string
	Kind         LibraryKind
	Path         string
	WatchEnabled bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Collection is a node in a library's content tree. Root collections have
// ParentID == nil. Sibling names are unique per (library, parent).
type Collection struct {
	ID        uuid.UUID
	LibraryID uuid.UUID
	ParentID  *uuid.UUID
	Name      string
	Kind      CollectionKind
	CreatedAt time.Time
}

// MediaItem is a single playable file. FilePath is unique across the catalog.
// Duration is 0 when the probe failed or has not run.
type MediaItem struct {
	ID            uuid.UUID
	LibraryID     uuid.UUID
	CollectionID  *uuid.UUID
	Kind          MediaKind
	FilePath      string
	DisplayName   string
	DurationSecs  float64
	TrickplayPath *string
	CreatedAt     time.Time
}

// MediaStream is one technical stream of a media item, derived entirely from
// the probe result and never mutated afterwards.
type MediaStream struct {
	ID          uuid.UUID
	MediaItemID uuid.UUID
	Index       int
	Type        string // video, audio, subtitle
	Codec       string
	Language    string
	Title       string
	IsDefault   bool
	IsForced    bool
	Channels    int
	SampleRate  int
	BitRate     int
	Width       int
	Height      int
	FrameRate   float64
}
