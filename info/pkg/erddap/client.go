package erddap

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sdig/erddap/info/pkg/gapfill"
	"github.com/sdig/erddap/info/pkg/metrics"
	"github.com/sdig/erddap/info/pkg/table"
	"github.com/sdig/erddap/utils/pkg/retry"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "erddap-info/1.0"

	KindInfo         = "info"
	KindDepths       = "depths"
	KindObservations = "observations"
)

type Config struct {
	Logger     *slog.Logger
	HTTPClient *http.Client
	UserAgent  string

	// RequestsPerSecond caps the request rate to upstream servers across all
	// callers of the client. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int

	Retry retry.Config
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.RequestsPerSecond < 0 {
		return errors.New("requests per second must be non-negative")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// Client reads info tables and data from ERDDAP servers.
type Client struct {
	log     *slog.Logger
	cfg     Config
	limiter *rate.Limiter
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	retryCfg := cfg.Retry
	retryCfg.OnRetry = func(attempt int, err error) {
		cfg.Logger.Warn("erddap: retrying request", "attempt", attempt, "error", err)
	}
	cfg.Retry = retryCfg
	return &Client{
		log:     cfg.Logger,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
	}, nil
}

// FetchInfo downloads and parses the info table of the dataset at dataURL.
func (c *Client) FetchInfo(ctx context.Context, dataURL string) (*table.Table, error) {
	var t *table.Table
	err := c.get(ctx, KindInfo, InfoURL(dataURL), func(body io.Reader) error {
		var err error
		t, err = table.Read(body)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.log.Debug("erddap: fetched info table", "url", dataURL, "rows", t.Len())
	return t, nil
}

// FetchDepths returns the distinct values of depthVariable in ascending
// order. The units row that follows the CSV header is skipped.
func (c *Client) FetchDepths(ctx context.Context, dataURL, depthVariable string) ([]float64, error) {
	if depthVariable == "" {
		return nil, errors.New("depth variable is required")
	}
	var depths []float64
	err := c.get(ctx, KindDepths, DepthQueryURL(dataURL, depthVariable), func(body io.Reader) error {
		var err error
		depths, err = readColumn(body, depthVariable)
		return err
	})
	if err != nil {
		return nil, err
	}
	return depths, nil
}

// FetchObservations runs an ERDDAP query against the dataset and returns the
// rows with timeColumn parsed as timestamps.
func (c *Client) FetchObservations(ctx context.Context, dataURL, query, timeColumn string) (*gapfill.Frame, error) {
	var f *gapfill.Frame
	err := c.get(ctx, KindObservations, ObservationsURL(dataURL, query), func(body io.Reader) error {
		var err error
		f, err = gapfill.ReadCSV(body, timeColumn)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.log.Debug("erddap: fetched observations", "url", dataURL, "rows", f.Len())
	return f, nil
}

func (c *Client) get(ctx context.Context, kind, rawURL string, decode func(io.Reader) error) error {
	if err := validate(rawURL); err != nil {
		return err
	}

	start := time.Now()
	err := retry.Do(ctx, c.cfg.Retry, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.do(ctx, rawURL, decode)
	})
	metrics.RecordUpstream(kind, time.Since(start), err)
	if err != nil {
		return &FetchError{Kind: kind, URL: rawURL, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, rawURL string, decode func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/csv")

	c.log.Debug("erddap: GET", "url", rawURL)
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return decode(resp.Body)
}

// readColumn reads one numeric column from an ERDDAP CSV response. Empty cells are NaN.
func readColumn(r io.Reader, column string) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := -1
	for i, h := range header {
		if strings.TrimPrefix(strings.TrimSpace(h), "\ufeff") == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("column %q not in response", column)
	}

	var values []float64
	for line := 0; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 0 {
			continue // units
		}
		if idx >= len(rec) {
			return nil, fmt.Errorf("row %d: missing %q", line, column)
		}
		cell := strings.TrimSpace(rec[idx])
		if cell == "" {
			values = append(values, math.NaN())
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", line, column, err)
		}
		values = append(values, v)
	}
	return values, nil
}
