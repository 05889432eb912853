package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sdig/erddap/info/pkg/constraint"
	"github.com/sdig/erddap/info/pkg/dataset"
	"github.com/sdig/erddap/info/pkg/gapfill"
)

const gapRowsHeader = "X-Gap-Rows-Inserted"

// depthsResponse lists missing (NaN) depths as null.
type depthsResponse struct {
	URL      string     `json:"url"`
	Variable string     `json:"variable"`
	Depths   []*float64 `json:"depths"`
}

func nullableFloats(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &values[i]
	}
	return out
}

func requiredParam(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s parameter is required", errBadRequest, name)
	}
	return v, nil
}

// listParam collects repeated parameters, also splitting comma-separated values.
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	url, err := requiredParam(r, "url")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ds, err := s.cache.Load(r.Context(), url)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := ds.SummaryIn(s.cfg.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) depthsHandler(w http.ResponseWriter, r *http.Request) {
	url, err := requiredParam(r, "url")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ds, err := s.cache.Load(r.Context(), url)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	depths, err := ds.Depths(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	z, _ := ds.Geometry.VerticalVariable()
	s.writeJSON(w, r, http.StatusOK, depthsResponse{URL: url, Variable: z, Depths: nullableFloats(depths)})
}

// constraintHandler keeps each value as given; commas are not separators here.
func (s *Server) constraintHandler(w http.ResponseWriter, r *http.Request) {
	variable, err := requiredParam(r, "var")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, constraint.Build(variable, r.URL.Query()["value"]))
}

// gapsHandler fills gaps in CSV posted in the body or, when url and query
// are given, in data fetched from that dataset.
func (s *Server) gapsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := gapfill.Options{
		TimeColumn:   q.Get("time"),
		EntityColumn: q.Get("id"),
		Keep:         listParam(r, "keep"),
	}
	if opts.TimeColumn == "" {
		opts.TimeColumn = dataset.DefaultTimeColumn
	}
	nstd, err := requiredParam(r, "n_std")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.StdDevMultiplier, err = strconv.ParseFloat(nstd, 64)
	if err != nil || opts.StdDevMultiplier <= 0 {
		s.writeError(w, r, fmt.Errorf("%w: n_std must be a positive number, got %q", errBadRequest, nstd))
		return
	}

	var res *gapfill.Result
	if url := q.Get("url"); url != "" {
		query, err := requiredParam(r, "query")
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ds, err := s.cache.Load(r.Context(), url)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		res, err = ds.PlugGaps(r.Context(), query, opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	} else {
		if opts.EntityColumn == "" {
			s.writeError(w, r, fmt.Errorf("%w: id parameter is required", errBadRequest))
			return
		}
		body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		frame, err := gapfill.ReadCSV(body, opts.TimeColumn)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
			return
		}
		res, err = dataset.Fill(r.Context(), frame, opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set(gapRowsHeader, strconv.Itoa(res.Inserted))
	w.WriteHeader(http.StatusOK)
	if err := gapfill.WriteCSV(w, res.Frame); err != nil {
		s.log.Error("server: failed to write gaps response", "error", err)
	}
}
