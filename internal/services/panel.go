package services

import (
	"context"
	"fmt"
	"sort"

	"regional-stats/internal/models"
)

// SeriesSource is the read capability the panel builder needs from the
// observation store.
type SeriesSource interface {
	FindSeries(ctx context.Context, categoryName string, region models.Region, years *models.YearRange) ([]models.SeriesPoint, error)
}

// PanelRow is one (year, region) observation across every variable.
type PanelRow struct {
	Year   int
	Region string
	Values []float64 // parallel to Panel.Variables
}

// Panel is the inner join of several series on (year, region).
type Panel struct {
	Variables []string
	Rows      []PanelRow
}

// Column returns the values of variable name in row order.
func (p *Panel) Column(name string) []float64 {
	idx := -1
	for i, v := range p.Variables {
		if v == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	col := make([]float64, len(p.Rows))
	for i, row := range p.Rows {
		col[i] = row.Values[idx]
	}
	return col
}

// Columns returns the columns for names in order.
func (p *Panel) Columns(names []string) [][]float64 {
	cols := make([][]float64, len(names))
	for i, n := range names {
		cols[i] = p.Column(n)
	}
	return cols
}

func (p *Panel) Years() []int {
	years := make([]int, len(p.Rows))
	for i, row := range p.Rows {
		years[i] = row.Year
	}
	return years
}

func (p *Panel) RegionLabels() []string {
	regions := make([]string, len(p.Rows))
	for i, row := range p.Rows {
		regions[i] = row.Region
	}
	return regions
}

// Contributing lists the regions that produced at least one row, in panel order.
func (p *Panel) Contributing() []string {
	var out []string
	seen := make(map[string]bool)
	for _, row := range p.Rows {
		if !seen[row.Region] {
			seen[row.Region] = true
			out = append(out, row.Region)
		}
	}
	return out
}

// PanelBuilder aligns per-category series into a Panel.
type PanelBuilder struct {
	source SeriesSource
}

func NewPanelBuilder(source SeriesSource) *PanelBuilder {
	return &PanelBuilder{source: source}
}

// Build fetches every variable for every region and inner-joins them on
// year within each region. Regions without full coverage contribute no
// rows. A variable with no observations at all, or fewer than minRows
// joined rows, yields a *models.NotFoundError.
func (b *PanelBuilder) Build(ctx context.Context, variables []string, regions []models.Region, years *models.YearRange, minRows int) (*Panel, error) {
	if len(variables) == 0 || len(regions) == 0 {
		return nil, &models.ValidationError{Field: "variables", Message: "at least one variable and one region are required"}
	}

	regions = uniqueRegions(regions)
	// series[v][r] maps year to value for variable v in region r
	series := make([][]map[int]float64, len(variables))
	for v, name := range variables {
		series[v] = make([]map[int]float64, len(regions))
		total := 0
		for r, region := range regions {
			points, err := b.source.FindSeries(ctx, name, region, years)
			if err != nil {
				return nil, fmt.Errorf("failed to load %q for %s: %w", name, region.Key(), err)
			}
			byYear := make(map[int]float64, len(points))
			for _, pt := range points {
				if !years.Contains(pt.Year) {
					continue
				}
				if _, dup := byYear[pt.Year]; !dup {
					byYear[pt.Year] = pt.Amount
				}
			}
			series[v][r] = byYear
			total += len(byYear)
		}
		if total == 0 {
			return nil, &models.NotFoundError{
				Resource: "series",
				ID:       name,
				Message:  fmt.Sprintf("no matching data for %q in the requested regions", name),
			}
		}
	}

	panel := &Panel{Variables: append([]string(nil), variables...)}
	for r, region := range regions {
		var common []int
		for year := range series[0][r] {
			covered := true
			for v := 1; v < len(variables); v++ {
				if _, ok := series[v][r][year]; !ok {
					covered = false
					break
				}
			}
			if covered {
				common = append(common, year)
			}
		}
		sort.Ints(common)

		for _, year := range common {
			values := make([]float64, len(variables))
			for v := range variables {
				values[v] = series[v][r][year]
			}
			panel.Rows = append(panel.Rows, PanelRow{Year: year, Region: region.Key(), Values: values})
		}
	}

	if minRows < 1 {
		minRows = 1
	}
	if len(panel.Rows) < minRows {
		return nil, &models.NotFoundError{
			Resource: "panel",
			Message:  fmt.Sprintf("no matching data: %d aligned observations, at least %d required", len(panel.Rows), minRows),
		}
	}
	return panel, nil
}

func uniqueRegions(regions []models.Region) []models.Region {
	seen := make(map[string]bool, len(regions))
	out := make([]models.Region, 0, len(regions))
	for _, r := range regions {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, r)
	}
	return out
}

// MemorySeriesSource serves series from memory, keyed by category name and
// region key. It backs the demo and tests.
type MemorySeriesSource struct {
	data map[string]map[string][]models.SeriesPoint
}

func NewMemorySeriesSource() *MemorySeriesSource {
	return &MemorySeriesSource{data: make(map[string]map[string][]models.SeriesPoint)}
}

// Add appends (year, amount) pairs for category in region.
func (m *MemorySeriesSource) Add(category, region string, years []int, amounts []float64) {
	if m.data[category] == nil {
		m.data[category] = make(map[string][]models.SeriesPoint)
	}
	for i := range years {
		m.data[category][region] = append(m.data[category][region], models.SeriesPoint{Amount: amounts[i], Year: years[i], Region: region})
	}
}

func (m *MemorySeriesSource) FindSeries(_ context.Context, categoryName string, region models.Region, years *models.YearRange) ([]models.SeriesPoint, error) {
	var out []models.SeriesPoint
	for _, pt := range m.data[categoryName][region.Key()] {
		if years.Contains(pt.Year) {
			out = append(out, pt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}
