// Package interpretation turns fitted-model numbers into the narrative text
// returned with every analysis: a detailed interpretation and an executive
// summary. All thresholds live in bands.go and all wording in phrasebook.go.
package interpretation

import (
	"fmt"
	"math"
	"strings"
)

// Mode is the rendering variant: single or multi region, linear or polynomial.
type Mode struct {
	MultiRegion bool
	Polynomial  bool
}

// Coefficient is one fitted term. PValue is nil for polynomial terms and for
// linear fits without residual degrees of freedom.
type Coefficient struct {
	Name   string
	Value  float64
	PValue *float64
}

// RegionSummary is one region's contribution to a multi-region panel.
type RegionSummary struct {
	Region        string
	Observations  int
	DependentMean float64
}

// Input carries everything the renderer needs. Names are display names.
type Input struct {
	Mode         Mode
	Dependent    string
	Independents []string
	Regions      []string
	RSquared     float64

	// Linear fits
	FPValue      *float64
	Coefficients []Coefficient // independents only, in order

	// Polynomial fits
	Intercept float64
	Terms     []Coefficient

	RegionStats       []RegionSummary
	TotalObservations int
}

// Render produces the detailed interpretation.
func Render(lang Language, in Input) string {
	pb := lookup(lang)
	var b strings.Builder
	pct := in.RSquared * 100
	strength := pb.strength[ClassifyStrength(in.RSquared)]

	if in.Mode.Polynomial {
		fmt.Fprintf(&b, pb.polynomialTitle, strings.ToUpper(in.Dependent))
		fmt.Fprintf(&b, pb.polynomialStrengthLine, pct, strength)
		fmt.Fprintf(&b, pb.polynomialExplainsLine, pct, in.Dependent)
		b.WriteString(pb.curvatureHeader)
		fmt.Fprintf(&b, pb.curvatureLine1, in.Dependent)
		b.WriteString(pb.curvatureLine2)
		b.WriteString(pb.coefHeader)
		fmt.Fprintf(&b, pb.interceptLine, in.Intercept)
		for i, term := range in.Terms {
			fmt.Fprintf(&b, pb.termLine, i+1, term.Name, term.Value)
		}
	} else {
		fmt.Fprintf(&b, pb.linearTitle, strings.ToUpper(in.Dependent))
		if in.FPValue != nil && !math.IsNaN(*in.FPValue) {
			fmt.Fprintf(&b, pb.modelSignificance, pb.significance[ClassifySignificance(*in.FPValue)])
		}
		fmt.Fprintf(&b, pb.strengthLine, pct, strength)
		fmt.Fprintf(&b, pb.explainsLine, pct, in.Dependent)
		b.WriteString(pb.effectsHeader)
		for _, c := range in.Coefficients {
			renderCoefficient(&b, pb, c, in.Dependent)
		}
	}

	if in.Mode.MultiRegion {
		b.WriteString(pb.regionalHeader)
		for _, rs := range in.RegionStats {
			fmt.Fprintf(&b, pb.regionLine, rs.Region, in.Dependent, rs.DependentMean, rs.Observations)
		}
		fmt.Fprintf(&b, pb.sampleLine, in.TotalObservations)
	}

	return b.String()
}

func renderCoefficient(b *strings.Builder, pb *phrasebook, c Coefficient, dependent string) {
	symbol, sig := "–", pb.coefUntested
	if c.PValue != nil && !math.IsNaN(*c.PValue) {
		if *c.PValue < coefficientAlpha {
			symbol, sig = "✓", pb.coefSignificant
		} else {
			symbol, sig = "✗", pb.coefNotSignificant
		}
	}

	direction, effect := pb.negative, pb.decreases
	if c.Value > 0 {
		direction, effect = pb.positive, pb.increases
	}

	fmt.Fprintf(b, pb.coefLine, symbol, c.Name, direction, sig)
	fmt.Fprintf(b, pb.effectLine, c.Name, dependent, effect, math.Abs(c.Value))
}

// Summary produces the executive summary.
func Summary(lang Language, in Input) string {
	pb := lookup(lang)
	var b strings.Builder
	pct := in.RSquared * 100

	place := strings.Join(in.Regions, ", ")
	area := strings.Join(shortRegionNames(in.Regions), ", ")

	fmt.Fprintf(&b, pb.summaryTitle, strings.ToUpper(area))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	if len(in.Independents) == 1 {
		fmt.Fprintf(&b, pb.focusSingle, in.Independents[0], in.Dependent)
	} else {
		fmt.Fprintf(&b, pb.focusMulti, in.Dependent)
		fmt.Fprintf(&b, pb.independentList, strings.Join(in.Independents, ", "))
	}
	fmt.Fprintf(&b, pb.studyArea, place)
	method := pb.methodLinear
	if in.Mode.Polynomial {
		method = pb.methodPolynomial
	}
	fmt.Fprintf(&b, pb.methodLine, method)

	b.WriteString(pb.findingsHeader)
	finding := pb.finding[classifyFinding(in.RSquared)]
	fmt.Fprintf(&b, finding[0], pct)
	fmt.Fprintf(&b, finding[1], in.Dependent)

	if !in.Mode.Polynomial && in.FPValue != nil && !math.IsNaN(*in.FPValue) {
		if *in.FPValue < coefficientAlpha {
			fmt.Fprintf(&b, pb.modelSignificant, *in.FPValue)
		} else {
			fmt.Fprintf(&b, pb.modelInsignificant, *in.FPValue)
		}
	}

	b.WriteString(pb.recommendHeader)
	rec := Recommend(in.RSquared)
	lines := pb.recommend[rec]
	switch rec {
	case UsableForPrediction:
		fmt.Fprintf(&b, lines[0], in.Dependent, area)
		b.WriteString(lines[1])
	default:
		b.WriteString(lines[0])
		fmt.Fprintf(&b, lines[1], in.Dependent)
	}

	if len(in.Independents) > 3 {
		b.WriteString(pb.variableSelection)
	}

	return b.String()
}

// shortRegionNames drops the administrative prefix ("Kota Yogyakarta" → "Yogyakarta").
func shortRegionNames(regions []string) []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		r = strings.Replace(r, "Kota ", "", 1)
		r = strings.Replace(r, "Kabupaten ", "", 1)
		out[i] = r
	}
	return out
}
