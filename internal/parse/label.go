package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	seqRe   = regexp.MustCompile(`(\d+)\s*$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// ParsedLabel holds the structured parts of a cell label such as "Koelcel 12".
type ParsedLabel struct {
	Prefix string
	Seq    int
	HasSeq bool
}

// Label splits a raw cell label into its prefix and trailing sequence number.
func Label(raw string) ParsedLabel {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))

	loc := seqRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return ParsedLabel{Prefix: s}
	}
	n, err := strconv.Atoi(s[loc[2]:loc[3]])
	if err != nil {
		// too many digits for an int, keep it as text
		return ParsedLabel{Prefix: s}
	}
	return ParsedLabel{Prefix: strings.TrimSpace(s[:loc[0]]), Seq: n, HasSeq: true}
}

// LessLabel orders labels by prefix (case-insensitive), then numerically by
// sequence, so "Cell 2" sorts before "Cell 10".
func LessLabel(a, b string) bool {
	pa, pb := Label(a), Label(b)
	if la, lb := strings.ToLower(pa.Prefix), strings.ToLower(pb.Prefix); la != lb {
		return la < lb
	}
	if pa.HasSeq != pb.HasSeq {
		return !pa.HasSeq
	}
	if pa.Seq != pb.Seq {
		return pa.Seq < pb.Seq
	}
	return a < b
}
