package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/reliefops/relief-coordinator/pkg/fusion"
	"github.com/reliefops/relief-coordinator/pkg/report"
	"github.com/reliefops/relief-coordinator/pkg/reporting"
)

// supplyPatterns extract quantified supplies from query text, checked
// in this order.
var supplyPatterns = []struct {
	key     string
	pattern *regexp.Regexp
}{
	{"water_cases", regexp.MustCompile(`(\d+)\s*(?:cases?\s+of\s+)?water`)},
	{"blankets", regexp.MustCompile(`(\d+)\s*blanket`)},
	{"medical_kits", regexp.MustCompile(`(\d+)\s*(?:medical\s+)?(?:kit|med)`)},
	{"food_cases", regexp.MustCompile(`(\d+)\s*(?:cases?\s+of\s+)?food`)},
	{"generators", regexp.MustCompile(`(\d+)\s*generator`)},
	{"cots", regexp.MustCompile(`(\d+)\s*cot`)},
	{"diapers", regexp.MustCompile(`(\d+)\s*(?:packs?\s+of\s+)?diaper`)},
	{"medications", regexp.MustCompile(`(\d+)\s*(?:medication|medicine)`)},
}

// supplyTypeKeywords detect supplies mentioned without a quantity.
var supplyTypeKeywords = []struct {
	key      string
	keywords []string
}{
	{"water_cases", []string{"water"}},
	{"food_cases", []string{"food", "mre"}},
	{"blankets", []string{"blanket"}},
	{"medical_kits", []string{"medical", "medicine", "med kit", "first aid"}},
	{"generators", []string{"generator"}},
	{"cots", []string{"cot", "bed"}},
	{"diapers", []string{"diaper"}},
	{"medications", []string{"medication", "medicine", "prescription"}},
}

// KeywordExtractor is the deterministic Extractor: regexes for
// supplies, a gazetteer for the origin, keyword lists for urgency, and
// highest-confidence-wins for conflicts.
type KeywordExtractor struct {
	gazetteer *Gazetteer
	policy    fusion.ReconcilePolicy
	logger    *reporting.Logger
}

// NewKeywordExtractor creates the deterministic extractor.
func NewKeywordExtractor(gazetteer *Gazetteer, logger *reporting.Logger) *KeywordExtractor {
	return &KeywordExtractor{
		gazetteer: gazetteer,
		policy:    fusion.FallbackReconcile,
		logger:    logger.WithComponent("extract.keyword"),
	}
}

// WithPolicy swaps the reconciliation policy.
func (e *KeywordExtractor) WithPolicy(p fusion.ReconcilePolicy) *KeywordExtractor {
	if p != nil {
		e.policy = p
	}
	return e
}

// ParseQuery implements Extractor.
func (e *KeywordExtractor) ParseQuery(ctx context.Context, text string) (ParsedQuery, error) {
	if err := ctx.Err(); err != nil {
		return ParsedQuery{}, err
	}

	parsed := ParsedQuery{
		Intent:      IntentRouteSupplies,
		Supplies:    map[string]int{},
		RawQuery:    text,
		Urgency:     UrgencyMedium,
		Constraints: []string{},
		ParsedBy:    ParsedByKeyword,
	}

	lower := strings.ToLower(text)

	for _, sp := range supplyPatterns {
		if m := sp.pattern.FindStringSubmatch(lower); m != nil {
			qty, err := strconv.Atoi(m[1])
			if err == nil && qty >= 0 {
				parsed.Supplies[sp.key] = qty
			}
		}
	}

	// Supplies mentioned without a quantity count as one unit.
	if len(parsed.Supplies) == 0 {
		for _, tk := range supplyTypeKeywords {
			for _, kw := range tk.keywords {
				if strings.Contains(lower, kw) {
					parsed.Supplies[tk.key] = 1
					break
				}
			}
		}
	}

	if loc, ok := e.gazetteer.Match(text); ok {
		parsed.Origin = &loc
		e.logger.Info("parsed origin",
			"address", loc.Address, "lat", loc.Lat, "lon", loc.Lon, "parsed_by", ParsedByKeyword)
	} else {
		e.logger.Warn("could not determine origin", "query", text)
	}

	parsed.Urgency = detectUrgency(lower)

	return parsed, nil
}

func detectUrgency(lower string) Urgency {
	for _, w := range []string{"urgent", "critical", "emergency", "asap"} {
		if strings.Contains(lower, w) {
			return UrgencyCritical
		}
	}
	for _, w := range []string{"soon", "quickly", "hurry"} {
		if strings.Contains(lower, w) {
			return UrgencyHigh
		}
	}
	return UrgencyMedium
}

// ReconcileConflict implements Extractor with the confidence-weighted
// policy.
func (e *KeywordExtractor) ReconcileConflict(ctx context.Context, reports []report.Report, label string) (fusion.Resolution, error) {
	if err := ctx.Err(); err != nil {
		return fusion.Resolution{}, err
	}
	return e.policy(reports, label), nil
}
