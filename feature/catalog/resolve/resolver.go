package resolve

import (
	"sort"
	"strings"

	"upgrade-tracker/feature/catalog/models"

	"go.uber.org/zap"
)

const (
	// baseThreshold is the acceptance score for long inputs; shorter
	// inputs must score closer to perfect.
	baseThreshold = 65
	// confidentThreshold separates clean matches from ones flagged
	// needs_review.
	confidentThreshold = 90
	// thresholdSlack caps how far the dynamic threshold may drop below
	// baseThreshold.
	thresholdSlack = 10
)

// Match is a resolved ship identity. NeedsReview is set when the score
// cleared acceptance but not the confident threshold.
type Match struct {
	ShipID      uint
	ShipName    string
	Score       int
	NeedsReview bool
}

type candidate struct {
	label  string
	shipID uint
	name   string
}

// Resolver maps free-text ship names to canonical catalog identities.
// It holds two ordered candidate spaces built from a catalog snapshot:
// bare ship names, then "<manufacturer> <ship name>" compounds. The
// spaces are tried in that order and the first acceptable match wins.
type Resolver struct {
	spaces [][]candidate
	scorer Scorer
	logger *zap.Logger
}

// NewResolver builds a resolver for the given catalog snapshot.
func NewResolver(ships []models.Ship, manufacturers []models.Manufacturer, scorer Scorer, logger *zap.Logger) *Resolver {
	byID := make(map[uint]models.Manufacturer, len(manufacturers))
	for _, m := range manufacturers {
		byID[m.ID] = m
	}

	bare := make([]candidate, 0, len(ships))
	compound := make([]candidate, 0, len(ships))
	for _, ship := range ships {
		bare = append(bare, candidate{label: ship.Name, shipID: ship.ID, name: ship.Name})
		m, ok := byID[ship.ManufacturerID]
		if !ok && ship.Manufacturer != nil {
			m, ok = *ship.Manufacturer, true
		}
		if ok {
			compound = append(compound, candidate{
				label:  m.Name + " " + ship.Name,
				shipID: ship.ID,
				name:   ship.Name,
			})
		}
	}

	return &Resolver{
		spaces: [][]candidate{bare, compound},
		scorer: scorer,
		logger: logger,
	}
}

// Resolve matches text against the catalog. The second return is false
// when no candidate space clears the acceptance threshold; that is a
// normal outcome, logged but never an error.
func (r *Resolver) Resolve(text string) (Match, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == `"` || trimmed == "'" {
		return Match{}, false
	}

	for _, space := range r.spaces {
		if match, ok := r.searchSpace(trimmed, space); ok {
			return match, true
		}
	}
	r.logger.Debug("ship name unresolved", zap.String("text", trimmed))
	return Match{}, false
}

type scored struct {
	candidate
	score int
}

func (r *Resolver) searchSpace(query string, space []candidate) (Match, bool) {
	if len(space) == 0 {
		return Match{}, false
	}

	ranked := make([]scored, 0, len(space))
	for _, c := range space {
		ranked = append(ranked, scored{candidate: c, score: r.scorer.Score(query, c.label)})
	}
	// Top candidates by score; ties at the maximum prefer the longest
	// label, which guards against accidental substring matches like
	// "300i" swallowing "Carrack 300i" queries.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return len(ranked[i].label) > len(ranked[j].label)
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	best := ranked[0]
	if best.score < MinScore(matchLength(query, best.label)) {
		return Match{}, false
	}
	return Match{
		ShipID:      best.shipID,
		ShipName:    best.name,
		Score:       best.score,
		NeedsReview: best.score < confidentThreshold,
	}, true
}

func matchLength(query, best string) int {
	if len(query) < len(best) {
		return len(query)
	}
	return len(best)
}

// MinScore is the dynamic acceptance threshold: short strings must
// score close to perfect, longer strings tolerate more divergence. It
// never decreases as the length shrinks.
func MinScore(length int) int {
	if length < 0 {
		length = 0
	}
	relax := int(float64(length) * 0.3)
	if relax > thresholdSlack {
		relax = thresholdSlack
	}
	return baseThreshold - relax
}
