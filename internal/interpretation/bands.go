package interpretation

import "math"

// Strength labels an R² percentage.
type Strength string

const (
	VeryStrong Strength = "very_strong"
	Strong     Strength = "strong"
	Moderate   Strength = "moderate"
	Weak       Strength = "weak"
	VeryWeak   Strength = "very_weak"
)

// Significance labels an F-test p-value.
type Significance string

const (
	VerySignificant   Significance = "very_significant"
	Significant       Significance = "significant"
	FairlySignificant Significance = "fairly_significant"
	NotSignificant    Significance = "not_significant"
)

// Recommendation labels how usable a model is for prediction.
type Recommendation string

const (
	UsableForPrediction Recommendation = "usable"
	NeedsMoreVariables  Recommendation = "needs_variables"
	NotSuitable         Recommendation = "not_suitable"
)

type floorBand[T any] struct {
	min   float64
	label T
}

type ceilingBand[T any] struct {
	below float64
	label T
}

// R² percentage, first floor reached wins.
var strengthBands = []floorBand[Strength]{
	{80, VeryStrong},
	{60, Strong},
	{40, Moderate},
	{20, Weak},
	{math.Inf(-1), VeryWeak},
}

// Summary findings use a coarser scale than the detailed interpretation.
var findingBands = []floorBand[Strength]{
	{70, VeryStrong},
	{50, Strong},
	{30, Moderate},
	{math.Inf(-1), Weak},
}

var recommendationBands = []floorBand[Recommendation]{
	{60, UsableForPrediction},
	{30, NeedsMoreVariables},
	{math.Inf(-1), NotSuitable},
}

// F-test p-value, first ceiling not reached wins.
var significanceBands = []ceilingBand[Significance]{
	{0.001, VerySignificant},
	{0.01, Significant},
	{0.05, FairlySignificant},
	{math.Inf(1), NotSignificant},
}

// coefficientAlpha is the per-coefficient significance level.
const coefficientAlpha = 0.05

func pickFloor[T any](bands []floorBand[T], v float64) T {
	for _, b := range bands {
		if v >= b.min {
			return b.label
		}
	}
	return bands[len(bands)-1].label
}

func pickCeiling[T any](bands []ceilingBand[T], v float64) T {
	for _, b := range bands {
		if v < b.below {
			return b.label
		}
	}
	return bands[len(bands)-1].label
}

// ClassifyStrength bands an R² in [0, 1].
func ClassifyStrength(rSquared float64) Strength {
	return pickFloor(strengthBands, rSquared*100)
}

// ClassifySignificance bands an F-test p-value.
func ClassifySignificance(p float64) Significance {
	return pickCeiling(significanceBands, p)
}

// Recommend bands an R² in [0, 1] for the executive summary.
func Recommend(rSquared float64) Recommendation {
	return pickFloor(recommendationBands, rSquared*100)
}

func classifyFinding(rSquared float64) Strength {
	return pickFloor(findingBands, rSquared*100)
}
