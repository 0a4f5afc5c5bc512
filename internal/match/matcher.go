// Package match implements the capability-matching engine: a pure weighted
// scoring function and the ranker that applies it across all active
// capabilities.
package match

import (
	"strings"

	"samscout/opportunity-service/internal/model"
)

// Weights configures the contribution of each scoring dimension. The four
// weights are expected to sum to 1; a capability that satisfies every
// dimension scores exactly 100.
type Weights struct {
	Keyword  float64
	NAICS    float64
	Agency   float64
	SetAside float64
}

// DefaultWeights is the standard scoring profile.
var DefaultWeights = Weights{
	Keyword:  0.40,
	NAICS:    0.30,
	Agency:   0.20,
	SetAside: 0.10,
}

// Score computes the weighted match between one opportunity and one
// capability, in [0, 100], plus the detail record of which dimensions were
// satisfied.
//
// Pure and total: missing opportunity fields behave as empty strings and a
// dimension the capability does not configure contributes 0. The score is
// never re-normalised for missing dimensions — a capability with only
// keywords defined tops out at the keyword weight.
func Score(opp *model.Opportunity, c *model.Capability, w Weights) (float64, model.MatchDetails) {
	details := model.MatchDetails{KeywordMatches: []string{}}
	score := 0.0

	// Keywords: fraction of capability keywords found as case-insensitive
	// substrings of title + description.
	if len(c.Keywords) > 0 {
		text := strings.ToLower(opp.Title + " " + opp.Description)
		for _, kw := range c.Keywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				details.KeywordMatches = append(details.KeywordMatches, kw)
			}
		}
		score += w.Keyword * float64(len(details.KeywordMatches)) / float64(len(c.Keywords))
	}

	// NAICS: exact code membership.
	if opp.NAICS != "" {
		for _, code := range c.NAICSCodes {
			if code == opp.NAICS {
				details.NAICSMatch = true
				score += w.NAICS
				break
			}
		}
	}

	// Agency: case-insensitive substring of the opportunity's agency
	// display string.
	if opp.Agency != "" {
		agency := strings.ToLower(opp.Agency)
		for _, pref := range c.PreferredAgencies {
			if pref != "" && strings.Contains(agency, strings.ToLower(pref)) {
				details.AgencyMatch = true
				score += w.Agency
				break
			}
		}
	}

	// Set-aside: exact code membership.
	if opp.SetAside != "" {
		for _, sa := range c.PreferredSetAsides {
			if sa == opp.SetAside {
				details.SetAsideMatch = true
				score += w.SetAside
				break
			}
		}
	}

	pct := score * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct, details
}
