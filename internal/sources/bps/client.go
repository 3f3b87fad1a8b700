// Package bps fetches indicator tables from the Statistics Indonesia (BPS)
// web API and flattens them into raw records.
package bps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"regional-stats/internal/models"
	"regional-stats/pkg/logging"
)

// DefaultBaseURL is the public BPS web API root
const DefaultBaseURL = "https://webapi.bps.go.id/v1/api"

// HTTPClient is the subset of *http.Client the client needs
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the API client
type Config struct {
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Query selects one table. Years is either "2023" or an inclusive range
// "2019:2023". Region, when set, keeps only the row with that label.
type Query struct {
	Domain string
	Var    string
	Turvar string
	Years  string
	Region string
}

// Client talks to the BPS web API behind a rate limiter and a circuit breaker
type Client struct {
	baseURL string
	apiKey  string
	http    HTTPClient
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *logging.StructuredLogger
}

// NewClient creates a client. A nil httpClient uses a default one with
// cfg.Timeout.
func NewClient(cfg Config, httpClient HTTPClient, logger *logging.StructuredLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	settings := gobreaker.Settings{
		Name:     "bps-webapi",
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "[BPS_BREAKER] Circuit breaker state changed", logging.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// URL builds the request URL for q
func (c *Client) URL(q Query) string {
	u := fmt.Sprintf("%s/list/model/data/lang/ind/domain/%s/var/%s/th/%s/key/%s/",
		c.baseURL, url.PathEscape(q.Domain), url.PathEscape(q.Var), url.PathEscape(q.Years), url.PathEscape(c.apiKey))
	if q.Turvar != "" && q.Turvar != "0" {
		u += "turvar/" + url.PathEscape(q.Turvar) + "/"
	}
	return u
}

// Fetch downloads one table and returns one record per (region, year) cell
// that carries a numeric value.
func (c *Client) Fetch(ctx context.Context, q Query) ([]models.RawIndicatorRecord, error) {
	if q.Domain == "" || q.Var == "" || q.Years == "" {
		return nil, &models.ValidationError{Field: "query", Message: "domain, var and years are required"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, c.URL(q))
	})
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal(body.([]byte), &resp); err != nil {
		return nil, fmt.Errorf("bps: failed to decode response: %w", err)
	}
	return resp.records(q)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bps: request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("bps: failed to read response: %w", err)
	}

	c.logger.Debug(ctx, "[BPS_FETCH] Response received", logging.Fields{
		"status":      res.StatusCode,
		"bytes":       len(body),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bps: unexpected status %d", res.StatusCode)
	}
	return body, nil
}

// code decodes ids that the API sends as numbers or strings
type code string

func (c *code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = code(s)
		return nil
	}
	*c = code(data)
	return nil
}

type item struct {
	Val   code   `json:"val"`
	Label string `json:"label"`
}

type response struct {
	Status      string                     `json:"status"`
	Message     string                     `json:"message"`
	Var         []item                     `json:"var"`
	Vervar      []item                     `json:"vervar"`
	Turvar      []item                     `json:"turvar"`
	Tahun       []item                     `json:"tahun"`
	Turtahun    []item                     `json:"turtahun"`
	DataContent map[string]json.RawMessage `json:"datacontent"`
}

// years keeps the table's year labels matching "2023" or falling in "2019:2023"
func (r *response) years(yearRange string) ([]item, error) {
	var out []item
	if from, to, ok := strings.Cut(yearRange, ":"); ok {
		first, err1 := strconv.Atoi(strings.TrimSpace(from))
		last, err2 := strconv.Atoi(strings.TrimSpace(to))
		if err1 != nil || err2 != nil || last < first {
			return nil, &models.ValidationError{Field: "years", Value: yearRange, Message: "years must be YYYY or YYYY:YYYY"}
		}
		for _, t := range r.Tahun {
			y, err := strconv.Atoi(strings.TrimSpace(t.Label))
			if err == nil && y >= first && y <= last {
				out = append(out, t)
			}
		}
	} else {
		want := strings.TrimSpace(yearRange)
		for _, t := range r.Tahun {
			if strings.TrimSpace(t.Label) == want {
				out = append(out, t)
			}
		}
	}

	if len(out) == 0 {
		return nil, &models.NotFoundError{Resource: "year", ID: yearRange, Message: fmt.Sprintf("year %s not found in API data", yearRange)}
	}
	return out, nil
}

func (r *response) regions(label string) ([]item, error) {
	if label == "" {
		return r.Vervar, nil
	}
	for _, v := range r.Vervar {
		if v.Label == label {
			return []item{v}, nil
		}
	}
	return nil, &models.NotFoundError{Resource: "region", ID: label, Message: fmt.Sprintf("region %q not found in API data", label)}
}

func (r *response) records(q Query) ([]models.RawIndicatorRecord, error) {
	if r.Status != "OK" || r.DataContent == nil {
		msg := r.Message
		if msg == "" {
			msg = "no data content"
		}
		return nil, fmt.Errorf("bps: api error: %s", msg)
	}

	regions, err := r.regions(q.Region)
	if err != nil {
		return nil, err
	}
	years, err := r.years(q.Years)
	if err != nil {
		return nil, err
	}

	indicator := q.Var
	for _, v := range r.Var {
		if string(v.Val) == q.Var {
			indicator = v.Label
			break
		}
	}

	turvar := q.Turvar
	if turvar == "" {
		turvar = "0"
	}

	var out []models.RawIndicatorRecord
	for _, region := range regions {
		for _, year := range years {
			key := string(region.Val) + q.Var + turvar + string(year.Val) + "0"
			raw, ok := r.DataContent[key]
			if !ok {
				continue
			}
			value, ok := parseValue(raw)
			if !ok {
				continue
			}
			out = append(out, models.RawIndicatorRecord{
				Indicator: indicator,
				Region:    region.Label,
				Year:      strings.TrimSpace(year.Label),
				Value:     value,
			})
		}
	}
	return out, nil
}

// parseValue accepts JSON numbers and numeric strings; anything else
// (nulls, "-", "…") is treated as a missing cell.
func parseValue(raw json.RawMessage) (float64, bool) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
