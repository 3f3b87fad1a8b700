package main

import (
	"context"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"regional-stats/internal/interpretation"
	"regional-stats/internal/models"
	"regional-stats/internal/services"
	"regional-stats/pkg/logging"
	"regional-stats/pkg/metrics"
)

//go:embed sample.csv
var sampleCSV string

// loadSeries reads category,region,year,amount rows. Amounts may use the
// Indonesian number format.
func loadSeries(r io.Reader) (*services.MemorySeriesSource, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) > 0 && rows[0][0] == "category" {
		rows = rows[1:]
	}

	src := services.NewMemorySeriesSource()
	for i, row := range rows {
		year, err := strconv.Atoi(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: invalid year %q", i+2, row[2])
		}
		amount, err := models.ParseAmount(row[3])
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w", i+2, err)
		}
		src.Add(strings.TrimSpace(row[0]), strings.TrimSpace(row[1]), []int{year}, []float64{amount})
	}
	return src, len(rows), nil
}

func printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func main() {
	dataFile := flag.String("data", "", "CSV file with category,region,year,amount rows (default: built-in sample)")
	language := flag.String("lang", "en", "interpretation language: en or id")
	full := flag.Bool("json", false, "print full JSON responses")
	flag.Parse()

	var input io.Reader = strings.NewReader(sampleCSV)
	if *dataFile != "" {
		f, err := os.Open(*dataFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open data file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		input = f
	}

	src, n, err := loadSeries(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("demo", "1.0.0", logging.WarnLevel)
	collector := metrics.NewCollectorWithRegistry("demo", prometheus.NewRegistry())
	svc := services.NewAnalysisService(src, nil, nil, interpretation.Language(*language), logger, collector)
	ctx := context.Background()

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("REGIONAL STATISTICS - OFFLINE ANALYSIS DEMONSTRATION")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Loaded %d observations\n\n", n)

	requests := []models.AnalysisRequest{
		{
			Cities:              []string{"Kota Yogyakarta"},
			RegressionType:      models.RegressionLinear,
			AnalysisType:        models.ArityUnary,
			IndependentVariable: "Indeks Gini",
			DependentVariable:   "Indeks Pembangunan Manusia",
		},
		{
			Cities:         []string{"Kota Yogyakarta", "Sleman"},
			RegressionType: models.RegressionLinear,
			AnalysisType:   models.ArityMulti,
			Variables:      []string{"Indeks Gini", "Indeks Pembangunan Manusia"},
		},
		{
			Cities:         []string{"Kota Yogyakarta"},
			RegressionType: models.RegressionNonLinear,
			AnalysisType:   models.ArityMulti,
			Variables:      []string{"Indeks Gini", "Tingkat Partisipasi Angkatan Kerja", "Indeks Pembangunan Manusia"},
		},
	}

	for _, req := range requests {
		fmt.Println(strings.Repeat("-", 80))
		fmt.Printf("%s / %s over %s\n", req.RegressionType, req.AnalysisType, strings.Join(req.Cities, ", "))
		fmt.Println(strings.Repeat("-", 80))

		resp, err := svc.Analyze(ctx, req)
		if err != nil {
			fmt.Printf("Analysis failed: %v\n\n", err)
			continue
		}
		if *full {
			printJSON(resp)
			continue
		}
		fmt.Printf("R²: %.4f  (observations: %d)\n\n", resp.Details.RSquared, resp.Details.TotalObservations)
		fmt.Println(resp.Details.Interpretation)
		fmt.Println()
		fmt.Println(resp.Summary)
		fmt.Println()
	}

	value := 0.46
	prediction, err := svc.Predict(ctx, models.PredictionRequest{
		City:                "Kota Yogyakarta",
		IndependentVariable: "Indeks Gini",
		DependentVariable:   "Indeks Pembangunan Manusia",
		IndependentValue:    &value,
	})
	if err != nil {
		fmt.Printf("Prediction failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(strings.Repeat("-", 80))
	printJSON(prediction)
}
