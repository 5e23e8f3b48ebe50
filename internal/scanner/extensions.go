package scanner

import (
	"strings"

	"github.com/shelfd/shelfd/internal/models"
)

// Extension sets per media class.
var videoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".m4v": true, ".wmv": true, ".flv": true, ".webm": true,
	".ts": true, ".m2ts": true, ".mpg": true, ".mpeg": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".flac": true, ".aac": true, ".ogg": true,
	".wav": true, ".m4a": true, ".alac": true, ".wma": true,
	".opus": true,
}

// MatchesLibrary reports whether a file extension belongs to the media set
// expected by a library kind: video for film/television, audio for music.
func MatchesLibrary(ext string, kind models.LibraryKind) bool {
	ext = strings.ToLower(ext)
	switch kind {
	case models.LibraryFilm, models.LibraryTelevision:
		return videoExtensions[ext]
	case models.LibraryMusic:
		return audioExtensions[ext]
	}
	return false
}

// MediaKindFor classifies a matching extension as video or audio.
func MediaKindFor(ext string) models.MediaKind {
	if videoExtensions[strings.ToLower(ext)] {
		return models.MediaVideo
	}
	return models.MediaAudio
}

// VideoExtensions returns the known video extensions, dot included.
func VideoExtensions() []string {
	exts := make([]string, 0, len(videoExtensions))
	for ext := range videoExtensions {
		exts = append(exts, ext)
	}
	return exts
}
