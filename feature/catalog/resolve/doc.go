// Package resolve maps free-text ship names to canonical catalog
// identities.
//
// Matching is token based: candidate and query are tokenized, and the
// score is the best Levenshtein ratio over the token-set combinations,
// which makes word order and duplicate words irrelevant. The acceptance
// threshold loosens slightly for longer inputs; matches that clear
// acceptance but not the confident threshold are flagged for review
// rather than rejected.
package resolve
