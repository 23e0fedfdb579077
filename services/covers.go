package services

import (
	"eshop-price-tracker/models"
	"eshop-price-tracker/utils"
)

// AttachCovers matches cover art from an independently keyed image catalog
// to merged entities and returns how many entities got an image. The image
// source shares no identifiers with the price sources, so matching goes
// NSUID first when one happens to line up, then exact normalized title,
// then the approximate containment fallback. First image per entity wins;
// ambiguous approximate matches are logged for later correction.
func AttachCovers(ix *models.GameIndex, refs []*models.CoverRef, logger *utils.Logger) int {
	attached := 0
	for _, ref := range refs {
		if ref.ImageURL == "" {
			continue
		}

		match := TitleMatch{Tier: MatchNone}
		if ref.NSUID != "" {
			if g, ok := ix.ByNSUID(ref.NSUID); ok {
				match = TitleMatch{Entity: g, Tier: MatchIdentifier}
			}
		}
		if match.Tier == MatchNone {
			m, ok := FindByTitle(ix, ref.Title)
			if !ok {
				continue
			}
			match = m
			if match.Tier == MatchApproximate {
				if match.Ambiguous {
					logger.Warn("[covers] ambiguous %s match for %q → %q (first match kept)",
						match.Tier, ref.Title, match.Entity.Title)
				} else {
					logger.Debug("[covers] %s match: %q → %q", match.Tier, ref.Title, match.Entity.Title)
				}
			}
		}

		if match.Entity.CoverURL == "" {
			match.Entity.CoverURL = ref.ImageURL
			attached++
		}
	}

	logger.Info("[covers] attached %d cover images (%d candidates)", attached, len(refs))
	return attached
}
