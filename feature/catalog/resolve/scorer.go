package resolve

import (
	"regexp"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Scorer rates the similarity of two strings on a 0-100 scale. It sits
// behind an interface so the scoring algorithm can be tuned or swapped
// without touching resolver control flow.
type Scorer interface {
	Score(a, b string) int
}

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// TokenSetScorer scores by comparing token sets: insensitive to token
// order and duplicate words, so "Aegis Gladius" and "Gladius Aegis"
// score 100 against each other.
type TokenSetScorer struct{}

func (TokenSetScorer) Score(a, b string) int {
	ta := tokens(a)
	tb := tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter, restA, restB := split(ta, tb)

	base := strings.Join(inter, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(restA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(restB, " "))

	best := ratio(withA, withB)
	if base != "" {
		if s := ratio(base, withA); s > best {
			best = s
		}
		if s := ratio(base, withB); s > best {
			best = s
		}
	}
	return best
}

// ratio is a normalized Levenshtein similarity in 0-100.
func ratio(a, b string) int {
	if a == b {
		return 100
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 100
	}
	dist := matchr.Levenshtein(a, b)
	if dist > longest {
		dist = longest
	}
	return int(float64(longest-dist) / float64(longest) * 100)
}

func tokens(s string) []string {
	fields := tokenSplit.Split(strings.ToLower(s), -1)
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// split partitions two sorted token slices into the shared tokens and
// each side's remainder, all kept sorted.
func split(a, b []string) (inter, restA, restB []string) {
	inB := make(map[string]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}
	inA := make(map[string]struct{}, len(a))
	for _, t := range a {
		inA[t] = struct{}{}
	}
	for _, t := range a {
		if _, ok := inB[t]; ok {
			inter = append(inter, t)
		} else {
			restA = append(restA, t)
		}
	}
	for _, t := range b {
		if _, ok := inA[t]; !ok {
			restB = append(restB, t)
		}
	}
	return inter, restA, restB
}
