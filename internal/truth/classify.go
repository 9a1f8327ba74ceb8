package truth

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

const (
	GeneralLegalNotice   = "general_legal_notice"
	UnknownLegalDocument = "unknown_legal_document"

	generalConfidence = 0.55
	unknownConfidence = 0.4
	maxConfidence     = 0.95
)

type rule struct {
	documentType string
	keywords     []string
}

// Rules are evaluated in order; a later rule wins only with strictly more matches.
var rules = []rule{
	{"summons_complaint", []string{"summons", "complaint", "plaintiff", "defendant", "served"}},
	{"eviction_notice", []string{"eviction", "notice to vacate", "pay or quit", "landlord", "tenant"}},
	{"debt_collection_notice", []string{"debt", "collector", "collection", "creditor", "amount due", "validation notice"}},
	{"court_hearing_notice", []string{"hearing", "court date", "appearance", "courtroom", "docket"}},
	{"citation_ticket", []string{"citation", "ticket", "violation", "fine", "infraction"}},
}

type classification struct {
	documentType string
	confidence   float64
	matched      []string
}

func classify(text string) classification {
	best := classification{documentType: UnknownLegalDocument, matched: []string{}}

	for _, r := range rules {
		matched := make([]string, 0, len(r.keywords))
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) > len(best.matched) {
			best.documentType = r.documentType
			best.matched = matched
		}
	}

	if len(best.matched) == 0 {
		if strings.Contains(text, "notice") || strings.Contains(text, "court") {
			return classification{documentType: GeneralLegalNotice, confidence: generalConfidence, matched: []string{}}
		}
		best.confidence = unknownConfidence
		return best
	}

	best.confidence = min(maxConfidence, 0.6+float64(len(best.matched))*0.08)
	return best
}

// collectFragments walks structured facts depth first, visiting map keys in
// sorted order, and returns every non-empty scalar leaf as text.
func collectFragments(v any, out []string) []string {
	switch t := v.(type) {
	case nil:
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case bool:
		out = append(out, strconv.FormatBool(t))
	case float64:
		out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		out = append(out, strconv.Itoa(t))
	case int64:
		out = append(out, strconv.FormatInt(t, 10))
	case interface{ String() string }:
		out = append(out, t.String())
	case []any:
		for _, item := range t {
			out = collectFragments(item, out)
		}
	case []string:
		for _, item := range t {
			out = collectFragments(item, out)
		}
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(t)) {
			out = collectFragments(t[k], out)
		}
	}
	return out
}
