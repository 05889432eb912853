package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sdig/erddap/info/pkg/constraint"
	"github.com/sdig/erddap/info/pkg/dataset"
	"github.com/sdig/erddap/info/pkg/dsg"
	"github.com/sdig/erddap/info/pkg/erddap"
	"github.com/sdig/erddap/info/pkg/gapfill"
	"github.com/sdig/erddap/info/pkg/table"
	"github.com/sdig/erddap/info/pkg/table/tabletest"
	erddaptesting "github.com/sdig/erddap/utils/pkg/testing"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu     sync.Mutex
	infos  map[string]*table.Table
	depths []float64
	frame  *gapfill.Frame
	calls  int
}

func (f *stubFetcher) FetchInfo(_ context.Context, url string) (*table.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	t, ok := f.infos[erddap.InfoURL(url)]
	if !ok {
		return nil, &erddap.FetchError{Kind: erddap.KindInfo, URL: url, Err: &erddap.StatusError{URL: url, Code: http.StatusNotFound}}
	}
	return t, nil
}

func (f *stubFetcher) FetchDepths(context.Context, string, string) ([]float64, error) {
	return f.depths, nil
}

func (f *stubFetcher) FetchObservations(context.Context, string, string, string) (*gapfill.Frame, error) {
	return f.frame, nil
}

func (f *stubFetcher) infoCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const (
	cgbnURL    = "https://data.pmel.noaa.gov/pmel/erddap/tabledap/CGBN_Canada"
	profileURL = "https://data.pmel.noaa.gov/pmel/erddap/tabledap/dy1104_profile_data"
	brokenURL  = "https://data.pmel.noaa.gov/pmel/erddap/tabledap/broken"
)

func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *stubFetcher) {
	t.Helper()
	fetcher := &stubFetcher{
		infos: map[string]*table.Table{
			erddap.InfoURL(cgbnURL):    tabletest.CGBNCanada(t),
			erddap.InfoURL(profileURL): tabletest.DY1104Profile(t),
			erddap.InfoURL(brokenURL):  table.New(table.Attribute(table.Global, "cdm_data_type", "TimeSeries")),
		},
		depths: []float64{0, 5, 10},
	}
	cfg := Config{
		Logger:     erddaptesting.NewLogger(t),
		Fetcher:    fetcher,
		ListenAddr: "127.0.0.1:0",
		Location:   time.UTC,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s, fetcher
}

func do(t *testing.T, s *Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestInfo_Server_Health(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, func(cfg *Config) {
		cfg.VersionInfo = VersionInfo{Version: "1.2.3", Commit: "abc", Date: "2026-01-01"}
	})

	rec := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok\n", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = do(t, s, http.MethodGet, "/version", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v VersionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Equal(t, "1.2.3", v.Version)

	rec = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "erddap_info_build_info")
}

func TestInfo_Server_RequestIDPropagated(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, "req-42", rec.Header().Get(requestIDHeader))
}

func TestInfo_Server_DatasetInfo(t *testing.T) {
	t.Parallel()

	s, fetcher := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/v1/datasets/info?url="+cgbnURL+".html", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary dataset.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, "CGBN Canadian Arctic Flux 1993-1999", summary.Title)
	require.Equal(t, dsg.TypeTimeSeries, summary.DSG.Type)
	require.Equal(t, "ID", summary.DSG.IdentifierVariables[dsg.RoleTimeSeries])
	require.Equal(t, 745758000.0, summary.Coverage.StartSeconds)
	require.Equal(t, "1999-11", summary.TimeMarks[941781600])
	require.Len(t, summary.Variables, 6)
	require.Equal(t, 1, fetcher.infoCalls())
}

func TestInfo_Server_DatasetInfo_Errors(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)

	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"missing url", "/v1/datasets/info", http.StatusBadRequest, "bad_request"},
		{"unknown dataset", "/v1/datasets/info?url=https://example.org/erddap/tabledap/nope", http.StatusNotFound, "dataset_not_found"},
		{"no identifier", "/v1/datasets/info?url=" + brokenURL, http.StatusUnprocessableEntity, "invalid_metadata"},
		{"depths of timeseries", "/v1/datasets/depths?url=" + cgbnURL, http.StatusUnprocessableEntity, "invalid_metadata"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, s, http.MethodGet, tt.target, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tt.code, body.Error)
			require.NotEmpty(t, body.RequestID)
		})
	}
}

func TestInfo_Server_Depths(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	rec := do(t, s, http.MethodGet, "/v1/datasets/depths?url="+profileURL, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.JSONEq(t, `{"url":"`+profileURL+`","variable":"depth","depths":[0,5,10]}`, rec.Body.String())
}

func TestInfo_Server_Depths_MissingValuesAreNull(t *testing.T) {
	t.Parallel()

	s, fetcher := newTestServer(t, nil)
	fetcher.depths = []float64{0, 5, math.NaN()}

	rec := do(t, s, http.MethodGet, "/v1/datasets/depths?url="+profileURL, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp depthsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Depths, 3)
	require.Equal(t, 0.0, *resp.Depths[0])
	require.Equal(t, 5.0, *resp.Depths[1])
	require.Nil(t, resp.Depths[2])
}

func TestInfo_Server_UnencodableResponseIsServerError(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/datasets/depths", nil)
	rec := httptest.NewRecorder()
	s.writeJSON(rec, req, http.StatusOK, map[string]float64{"depth": math.NaN()})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "internal_error", body.Error)
	require.Contains(t, body.Message, "encode response")
}

func TestInfo_Server_Constraint(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/v1/constraint?var=ID&value=A&value=B%20C", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var c constraint.Constraint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.Equal(t, `ID=~"A|B%20C"`, c.Expression)
	require.Equal(t, []string{"A", "B C"}, c.Values)

	rec = do(t, s, http.MethodGet, "/v1/constraint?var=ID", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	require.Empty(t, c.Expression)

	rec = do(t, s, http.MethodGet, "/v1/constraint?value=A", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInfo_Server_Gaps(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("ID,time,QS\n,UTC,W/m2\n")
	for _, h := range []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 20} {
		fmt.Fprintf(&sb, "A,1993-08-19T%02d:00:00Z,1.5\n", h)
	}

	s, _ := newTestServer(t, nil)

	t.Run("posted csv", func(t *testing.T) {
		t.Parallel()
		rec := do(t, s, http.MethodPost, "/v1/gaps?id=ID&keep=ID&n_std=2", strings.NewReader(sb.String()))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, "1", rec.Header().Get(gapRowsHeader))

		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 13)
		require.Equal(t, "ID,time,QS", lines[0])
		require.Equal(t, "A,1993-08-19T14:30:00Z,NaN", lines[11])
	})

	t.Run("bad parameters", func(t *testing.T) {
		t.Parallel()
		for _, target := range []string{
			"/v1/gaps?id=ID",
			"/v1/gaps?id=ID&n_std=zero",
			"/v1/gaps?id=ID&n_std=-1",
			"/v1/gaps?n_std=2",
			"/v1/gaps?id=station&n_std=2",
			"/v1/gaps?url=" + cgbnURL + "&n_std=2",
		} {
			rec := do(t, s, http.MethodPost, target, strings.NewReader(sb.String()))
			require.Equal(t, http.StatusBadRequest, rec.Code, target)
		}
	})
}

func TestInfo_Server_GapsFromDataset(t *testing.T) {
	t.Parallel()

	t0 := time.Date(1993, 8, 19, 0, 0, 0, 0, time.UTC)
	frame := &gapfill.Frame{Columns: []string{"ID", "time", "QS"}}
	for _, h := range []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 20} {
		frame.Rows = append(frame.Rows, []any{"A", t0.Add(time.Duration(h) * time.Hour), 1.5})
	}

	s, fetcher := newTestServer(t, nil)
	fetcher.frame = frame

	rec := do(t, s, http.MethodPost, "/v1/gaps?url="+cgbnURL+"&query=ID,time,QS&keep=ID&n_std=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "1", rec.Header().Get(gapRowsHeader))
}

func TestInfo_Server_CacheTTL(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	s, fetcher := newTestServer(t, func(cfg *Config) {
		cfg.Clock = clock
		cfg.CacheTTL = time.Minute
	})

	for range 3 {
		rec := do(t, s, http.MethodGet, "/v1/datasets/info?url="+cgbnURL, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 1, fetcher.infoCalls())

	// The .html form resolves to the same info URL.
	rec := do(t, s, http.MethodGet, "/v1/datasets/info?url="+cgbnURL+".html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, fetcher.infoCalls())

	clock.Advance(time.Minute)
	rec = do(t, s, http.MethodGet, "/v1/datasets/info?url="+cgbnURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, fetcher.infoCalls())
}

func TestInfo_Server_CacheDisabled(t *testing.T) {
	t.Parallel()

	s, fetcher := newTestServer(t, func(cfg *Config) {
		cfg.CacheTTL = -1
	})
	for range 2 {
		rec := do(t, s, http.MethodGet, "/v1/datasets/info?url="+cgbnURL, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 2, fetcher.infoCalls())
	require.Zero(t, s.cache.Len())
}

func TestInfo_Server_RateLimit(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	s, _ := newTestServer(t, func(cfg *Config) {
		cfg.Clock = clock
		cfg.RequestsPerSecond = 1
		cfg.Burst = 2
	})

	target := "/v1/constraint?var=ID&value=A"
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, target, nil).Code)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, target, nil).Code)

	rec := do(t, s, http.MethodGet, target, nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Health checks are not limited.
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)

	clock.Advance(time.Second)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, target, nil).Code)
}

func TestInfo_Server_ConfigValidate(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	require.ErrorContains(t, cfg.Validate(), "logger")

	cfg = Config{Logger: erddaptesting.NewLogger(t)}
	require.ErrorContains(t, cfg.Validate(), "fetcher")

	cfg = Config{Logger: erddaptesting.NewLogger(t), Fetcher: &stubFetcher{}}
	require.ErrorContains(t, cfg.Validate(), "listen addr")

	cfg = Config{Logger: erddaptesting.NewLogger(t), Fetcher: &stubFetcher{}, ListenAddr: ":0", RequestsPerSecond: 2.5}
	require.NoError(t, cfg.Validate())
	require.Equal(t, 2, cfg.Burst)
	require.Equal(t, defaultCacheTTL, cfg.CacheTTL)
	require.Equal(t, defaultLoadTimeout, cfg.LoadTimeout)
	require.Equal(t, time.Local, cfg.Location)
	require.NotNil(t, cfg.Clock)
}

func TestInfo_Server_StatusFor(t *testing.T) {
	t.Parallel()

	status, code := statusFor(&erddap.FetchError{Kind: erddap.KindInfo, Err: &erddap.StatusError{Code: http.StatusServiceUnavailable}})
	require.Equal(t, http.StatusBadGateway, status)
	require.Equal(t, "upstream_error", code)

	status, code = statusFor(context.Canceled)
	require.Equal(t, statusClientClosedRequest, status)
	require.Equal(t, "canceled", code)

	status, _ = statusFor(context.DeadlineExceeded)
	require.Equal(t, http.StatusGatewayTimeout, status)

	status, _ = statusFor(io.ErrUnexpectedEOF)
	require.Equal(t, http.StatusInternalServerError, status)
}
