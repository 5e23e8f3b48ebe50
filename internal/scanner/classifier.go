package scanner

import "github.com/shelfd/shelfd/internal/models"

// CollectionKindFor maps a library kind and a zero-based directory depth
// (relative to the library root) to the collection kind created at that
// level. Pure function, no I/O.
func CollectionKindFor(kind models.LibraryKind, depth int) models.CollectionKind {
	switch kind {
	case models.LibraryTelevision:
		switch depth {
		case 0:
			return models.CollectionShow
		case 1:
			return models.CollectionSeason
		}
	case models.LibraryMusic:
		switch depth {
		case 0:
			return models.CollectionArtist
		case 1:
			return models.CollectionAlbum
		}
	case models.LibraryFilm:
		if depth == 0 {
			return models.CollectionFilm
		}
	}
	return models.CollectionGeneric
}
