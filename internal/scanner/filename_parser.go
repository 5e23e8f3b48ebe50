package scanner

import (
	"regexp"
	"strconv"
	"strings"
)

// EpisodeInfo is the result of parsing a television filename.
type EpisodeInfo struct {
	Show    string
	Season  int
	Episode int
	Title   string
}

// MovieInfo is the result of parsing a film filename. Year is 0 when the
// filename carries no recognizable year.
type MovieInfo struct {
	Title string
	Year  int
}

// Episode patterns, each bounded by separator-like delimiters (or the string
// boundary) so they never match inside ordinary words.
var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|[.\s_-])S(\d{1,2})[.\s_-]?E(\d{1,3})(?:[.\s_-]|$)`), // Show.S01E02
	regexp.MustCompile(`(?i)(?:^|[.\s_-])(\d{1,2})x(\d{1,3})(?:[.\s_-]|$)`),          // Show.1x02
}

// Year bounded the same way. 1900s/2000s only.
var movieYearRx = regexp.MustCompile(`(?:^|[.\s(\[_-])((?:19|20)\d{2})(?:[.\s)\]_-]|$)`)

var seasonDirRx = regexp.MustCompile(`(?i)^season[.\s_-]?\d+$`)

var spacesRx = regexp.MustCompile(`\s+`)

// qualityTokens is the set of trailing release junk stripped from parsed
// titles: resolution, source, codec, audio format, and release-tag markers.
var qualityTokens = buildTokenSet(
	// Resolution
	[]string{"480p", "480i", "576p", "576i", "720p", "720i", "1080p", "1080i", "2160p", "4k", "uhd"},
	// Source
	[]string{"bluray", "blu-ray", "bdrip", "brrip", "bdremux", "remux", "webrip",
		"web-dl", "webdl", "web", "hdtv", "pdtv", "dvdrip", "dvd", "hdrip",
		"amzn", "nf", "dsnp", "atvp", "hmax"},
	// Video codecs
	[]string{"x264", "x265", "h264", "h265", "h.264", "h.265", "hevc", "avc",
		"av1", "xvid", "divx", "10bit", "8bit", "hdr", "hdr10", "dv", "sdr"},
	// Audio
	[]string{"aac", "ac3", "eac3", "dts", "dts-hd", "truehd", "atmos", "flac",
		"mp3", "opus", "dd5", "ddp5", "5.1", "7.1", "2.0"},
	// Release tags
	[]string{"proper", "repack", "rerip", "internal", "limited", "extended",
		"unrated", "remastered", "multi", "subbed", "dubbed", "remaster"},
)

// ParseEpisode recognizes S##E## and #x## forms in a filename (extension
// already stripped or not, either works). On a match it also extracts the
// tentative show name before the pattern and the episode title after it,
// with trailing quality tokens removed. Returns ok=false when the filename
// carries no episode marker.
func ParseEpisode(name string) (EpisodeInfo, bool) {
	name = strings.TrimSuffix(name, extOf(name))
	for _, rx := range episodePatterns {
		m := rx.FindStringSubmatchIndex(name)
		if m == nil {
			continue
		}
		season, _ := strconv.Atoi(name[m[2]:m[3]])
		episode, _ := strconv.Atoi(name[m[4]:m[5]])

		info := EpisodeInfo{
			Season:  season,
			Episode: episode,
			Show:    normalizeSeparators(name[:m[0]]),
			Title:   stripQualityTokens(normalizeSeparators(name[m[1]:])),
		}
		return info, true
	}
	return EpisodeInfo{}, false
}

// ParseMovie locates a delimiter-bounded 4-digit year; everything before it
// becomes the title. Without a year, the title is cut at the first quality
// token instead.
func ParseMovie(name string) MovieInfo {
	name = strings.TrimSuffix(name, extOf(name))

	// Last bounded year wins so titles that start with a year ("2001 A
	// Space Odyssey 1968") keep their leading number.
	var last []int
	for _, m := range movieYearRx.FindAllStringSubmatchIndex(name, -1) {
		if m[2] > 0 {
			last = m
		}
	}
	if last != nil {
		year, _ := strconv.Atoi(name[last[2]:last[3]])
		return MovieInfo{
			Title: normalizeSeparators(name[:last[0]]),
			Year:  year,
		}
	}

	return MovieInfo{Title: stripQualityTokens(normalizeSeparators(name))}
}

// ShowNameFromAncestors picks a show name from an ordered ancestor list
// (immediate parent last). A parent matching "Season <n>" is skipped in
// favor of its own parent.
func ShowNameFromAncestors(ancestors []string) string {
	if len(ancestors) == 0 {
		return ""
	}
	parent := ancestors[len(ancestors)-1]
	if seasonDirRx.MatchString(parent) && len(ancestors) >= 2 {
		return ancestors[len(ancestors)-2]
	}
	return parent
}

// extOf returns the trailing media extension, or "". Only known media
// extensions count: "Show.1x02" or "Inception.2010" must keep their tail.
func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		ext := strings.ToLower(name[i:])
		if videoExtensions[ext] || audioExtensions[ext] {
			return name[i:]
		}
	}
	return ""
}

// normalizeSeparators turns dots/underscores into spaces, collapses runs,
// and trims stray dashes left at the edges.
func normalizeSeparators(s string) string {
	s = strings.ReplaceAll(s, ".", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = spacesRx.ReplaceAllString(s, " ")
	return strings.Trim(s, " -")
}

// stripQualityTokens cuts the string at its first quality/encoding token.
func stripQualityTokens(s string) string {
	tokens := strings.Fields(s)
	for i, t := range tokens {
		if qualityTokens[strings.ToLower(strings.Trim(t, "[]()"))] {
			tokens = tokens[:i]
			break
		}
	}
	return strings.Trim(strings.Join(tokens, " "), " -")
}

func buildTokenSet(slices ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, sl := range slices {
		for _, s := range sl {
			set[strings.ToLower(s)] = true
		}
	}
	return set
}
