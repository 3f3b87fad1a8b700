package bps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regional-stats/internal/models"
	"regional-stats/pkg/logging"
)

const giniPayload = `{
	"status": "OK",
	"var": [{"val": 333, "label": "Gini Ratio"}],
	"vervar": [
		{"val": 3401, "label": "Kulon Progo"},
		{"val": 3471, "label": "Kota Yogyakarta"}
	],
	"turvar": [{"val": 0, "label": "Tidak ada"}],
	"tahun": [
		{"val": 121, "label": "2021"},
		{"val": 122, "label": "2022"},
		{"val": 123, "label": "2023"}
	],
	"turtahun": [{"val": 0, "label": "Tahun"}],
	"datacontent": {
		"340133301210": 0.353,
		"340133301220": "0.362",
		"347133301210": 0.441,
		"347133301220": null,
		"347133301230": 0.449
	}
}`

func testLogger() *logging.StructuredLogger {
	return logging.NewStructuredLogger("test", "test", logging.FatalLevel)
}

func newTestServer(t *testing.T, status int, body string, seen *atomic.Value) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen.Store(r.URL.Path)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_URL(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://example.test/v1/api/", APIKey: "k"}, nil, testLogger())

	assert.Equal(t,
		"https://example.test/v1/api/list/model/data/lang/ind/domain/3400/var/333/th/2019:2023/key/k/",
		c.URL(Query{Domain: "3400", Var: "333", Years: "2019:2023"}))
	assert.Equal(t,
		"https://example.test/v1/api/list/model/data/lang/ind/domain/3400/var/368/th/2023/key/k/turvar/343/",
		c.URL(Query{Domain: "3400", Var: "368", Turvar: "343", Years: "2023"}))
}

func TestClient_FetchRange(t *testing.T) {
	var path atomic.Value
	srv := newTestServer(t, http.StatusOK, giniPayload, &path)
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"}, srv.Client(), testLogger())

	records, err := c.Fetch(context.Background(), Query{Domain: "3400", Var: "333", Years: "2021:2023"})
	require.NoError(t, err)
	assert.Contains(t, path.Load(), "/domain/3400/var/333/th/2021:2023/key/secret/")

	require.Len(t, records, 4)
	assert.Equal(t, models.RawIndicatorRecord{Indicator: "Gini Ratio", Region: "Kulon Progo", Year: "2021", Value: 0.353}, records[0])
	assert.Equal(t, 0.362, records[1].Value)
	assert.Equal(t, "Kota Yogyakarta", records[2].Region)
	assert.Equal(t, "2023", records[3].Year)
}

func TestResponse_YearsWideRange(t *testing.T) {
	r := &response{Tahun: []item{{Val: "121", Label: "2021"}, {Val: "122", Label: "2022"}, {Val: "123", Label: "2023"}}}

	got, err := r.years("0:2000000000")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = r.years("2022:2100")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2022", got[0].Label)

	_, err = r.years("1900:2000")
	var nf *models.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestClient_FetchRegionFilter(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, giniPayload, nil)
	c := NewClient(Config{BaseURL: srv.URL}, srv.Client(), testLogger())

	records, err := c.Fetch(context.Background(), Query{Domain: "3400", Var: "333", Years: "2021", Region: "Kota Yogyakarta"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0.441, records[0].Value)

	_, err = c.Fetch(context.Background(), Query{Domain: "3400", Var: "333", Years: "2021", Region: "Sleman"})
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "region", nf.Resource)
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		query  Query
		want   string
	}{
		{"non-200", http.StatusInternalServerError, "oops", Query{Domain: "3400", Var: "333", Years: "2021"}, "unexpected status 500"},
		{"api error", http.StatusOK, `{"status":"Error","message":"invalid key"}`, Query{Domain: "3400", Var: "333", Years: "2021"}, "invalid key"},
		{"missing year", http.StatusOK, giniPayload, Query{Domain: "3400", Var: "333", Years: "2010:2012"}, "not found"},
		{"bad year range", http.StatusOK, giniPayload, Query{Domain: "3400", Var: "333", Years: "2023:2021"}, "YYYY"},
		{"missing fields", http.StatusOK, giniPayload, Query{Domain: "3400"}, "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body, nil)
			c := NewClient(Config{BaseURL: srv.URL}, srv.Client(), testLogger())

			_, err := c.Fetch(context.Background(), tt.query)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, RequestsPerSecond: 1000, Burst: 10}, srv.Client(), testLogger())
	q := Query{Domain: "3400", Var: "333", Years: "2021"}
	for i := 0; i < 5; i++ {
		_, _ = c.Fetch(context.Background(), q)
	}
	assert.Equal(t, int32(3), calls.Load())
}
