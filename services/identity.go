package services

import (
	"regexp"
	"strings"

	"eshop-price-tracker/models"
)

// MatchTier labels how confident an identity match is. Identifier matches
// are authoritative; normalized-title matches are exact but cover localized
// titles poorly; approximate matches are a best-effort containment heuristic
// with known false positives on short or generic titles.
type MatchTier int

const (
	MatchNone MatchTier = iota
	MatchIdentifier
	MatchTitle
	MatchApproximate
)

func (t MatchTier) String() string {
	switch t {
	case MatchIdentifier:
		return "identifier"
	case MatchTitle:
		return "title"
	case MatchApproximate:
		return "approximate"
	default:
		return "none"
	}
}

var (
	// markGlyphRe strips trademark/registration/copyright glyphs that differ
	// between storefronts for the same game.
	markGlyphRe = regexp.MustCompile(`[™®©]`)
	// curlyQuoteRe normalizes typographic apostrophes to straight ones.
	curlyQuoteRe = regexp.MustCompile("[‘’]")
	// separatorRe collapses colon/dash/en-dash/em-dash runs; subtitles are
	// punctuated inconsistently across regions.
	separatorRe  = regexp.MustCompile("[:–—-]+")
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeTitle produces the fallback identity key for a game title.
func NormalizeTitle(title string) string {
	s := strings.ToLower(title)
	s = markGlyphRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = curlyQuoteRe.ReplaceAllString(s, "'")
	s = separatorRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TitleMatch is the outcome of matching a title against an index.
type TitleMatch struct {
	Entity    *models.GameEntity
	Tier      MatchTier
	Ambiguous bool // more than one approximate candidate existed
}

// FindByTitle resolves a title from an independently keyed catalog against
// the index: exact normalized-title match first, then a containment scan in
// either direction over the registered titles, first registered wins.
// Ambiguity (several containment candidates) is flagged so callers can log
// it; the first candidate is still returned.
func FindByTitle(ix *models.GameIndex, title string) (TitleMatch, bool) {
	norm := NormalizeTitle(title)
	if norm == "" {
		return TitleMatch{}, false
	}

	if g, ok := ix.ByTitle(norm); ok {
		return TitleMatch{Entity: g, Tier: MatchTitle}, true
	}

	var first *models.GameEntity
	candidates := 0
	for _, key := range ix.TitleKeys() {
		if strings.Contains(key, norm) || strings.Contains(norm, key) {
			candidates++
			if first == nil {
				first, _ = ix.ByTitle(key)
			}
		}
	}
	if first == nil {
		return TitleMatch{}, false
	}
	return TitleMatch{Entity: first, Tier: MatchApproximate, Ambiguous: candidates > 1}, true
}
