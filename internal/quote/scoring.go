// Package quote compares vendor offers on a quote request.
//
// Scores are derived on demand from the response set and a weight pair and
// are never stored.
package quote

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

const weightTolerance = 1e-9

var leadingNumber = regexp.MustCompile(`\d+`)

// Weights balances price against delivery time. Cost+Timeline must equal 1.
type Weights struct {
	Cost     float64 `json:"costWeight"`
	Timeline float64 `json:"timelineWeight"`
}

// Presets offered to decision makers.
var (
	CostFavoring     = Weights{Cost: 0.7, Timeline: 0.3}
	Balanced         = Weights{Cost: 0.5, Timeline: 0.5}
	TimelineFavoring = Weights{Cost: 0.3, Timeline: 0.7}
)

var presets = map[string]Weights{
	"cost":     CostFavoring,
	"balanced": Balanced,
	"timeline": TimelineFavoring,
}

// Preset looks up a named weight pair: cost, balanced or timeline.
func Preset(name string) (Weights, bool) {
	w, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return w, ok
}

// Validate rejects negative weights and pairs that do not sum to 1.
func (w Weights) Validate() error {
	if w.Cost < 0 || w.Timeline < 0 || math.IsNaN(w.Cost) || math.IsNaN(w.Timeline) {
		return apperrors.NewInvalidWeights("weights must be non-negative", map[string]any{"cost": w.Cost, "timeline": w.Timeline})
	}
	if math.Abs(w.Cost+w.Timeline-1) > weightTolerance {
		return apperrors.NewInvalidWeights(fmt.Sprintf("weights must sum to 1, got %g", w.Cost+w.Timeline), map[string]any{"cost": w.Cost, "timeline": w.Timeline})
	}
	return nil
}

// ParseTimelineDays turns free text such as "2 weeks" into a day count. The
// first integer is scaled by the unit word; text without digits yields 0.
func ParseTimelineDays(text string) int {
	digits := leadingNumber.FindString(text)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "day"):
		return n
	case strings.Contains(lower, "week"):
		return n * 7
	case strings.Contains(lower, "month"):
		return n * 30
	default:
		return n
	}
}

// Score is one response's comparison result. Scores are unrounded; use the
// Rounded helpers for display.
type Score struct {
	Rank          int     `json:"rank"`
	ResponseID    string  `json:"responseId"`
	VendorID      string  `json:"vendorId"`
	Amount        float64 `json:"amount"`
	TimelineDays  int     `json:"timelineDays"`
	CostScore     float64 `json:"costScore"`
	TimelineScore float64 `json:"timelineScore"`
	WeightedScore float64 `json:"weightedScore"`
}

func (s Score) RoundedCost() int     { return int(math.Round(s.CostScore)) }
func (s Score) RoundedTimeline() int { return int(math.Round(s.TimelineScore)) }
func (s Score) RoundedWeighted() int { return int(math.Round(s.WeightedScore)) }

// Rank scores every response under w and orders them best first: higher
// weighted score, then lower amount, then response id.
func Rank(responses []domain.QuoteResponse, w Weights) ([]Score, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return []Score{}, nil
	}

	days := make([]int, len(responses))
	lowest := responses[0].Amount
	shortest := math.MaxInt
	for i, r := range responses {
		days[i] = ParseTimelineDays(r.DeliveryTimeline)
		if r.Amount < lowest {
			lowest = r.Amount
		}
		if days[i] < shortest {
			shortest = days[i]
		}
	}
	if shortest == 0 {
		shortest = 1
	}

	scores := make([]Score, len(responses))
	for i, r := range responses {
		cost := 100.0
		if lowest > 0 && r.Amount > 0 {
			cost = lowest / r.Amount * 100
		}
		timeline := 100.0
		if days[i] > 0 {
			timeline = float64(shortest) / float64(days[i]) * 100
		}
		scores[i] = Score{
			ResponseID:    r.ID,
			VendorID:      r.VendorID,
			Amount:        r.Amount,
			TimelineDays:  days[i],
			CostScore:     cost,
			TimelineScore: timeline,
			WeightedScore: cost*w.Cost + timeline*w.Timeline,
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.WeightedScore != b.WeightedScore {
			return a.WeightedScore > b.WeightedScore
		}
		if a.Amount != b.Amount {
			return a.Amount < b.Amount
		}
		return a.ResponseID < b.ResponseID
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
	return scores, nil
}
