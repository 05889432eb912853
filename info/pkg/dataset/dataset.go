// Package dataset ties the metadata readers to one ERDDAP dataset: it fetches the info table
// once and answers geometry, coverage, variable, depth, constraint and gap-filling questions
// from it.
package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/sdig/erddap/info/pkg/catalog"
	"github.com/sdig/erddap/info/pkg/constraint"
	"github.com/sdig/erddap/info/pkg/coverage"
	"github.com/sdig/erddap/info/pkg/dsg"
	"github.com/sdig/erddap/info/pkg/erddap"
	"github.com/sdig/erddap/info/pkg/gapfill"
	"github.com/sdig/erddap/info/pkg/metrics"
	"github.com/sdig/erddap/info/pkg/table"
)

const DefaultTimeColumn = "time"

// Fetcher is the subset of erddap.Client a Dataset needs.
type Fetcher interface {
	FetchInfo(ctx context.Context, dataURL string) (*table.Table, error)
	FetchDepths(ctx context.Context, dataURL, depthVariable string) ([]float64, error)
	FetchObservations(ctx context.Context, dataURL, query, timeColumn string) (*gapfill.Frame, error)
}

// Dataset is a classified ERDDAP dataset.
type Dataset struct {
	URL      string
	Table    *table.Table
	Geometry dsg.Geometry

	fetcher Fetcher
}

// Summary is everything the info table says about a dataset.
type Summary struct {
	URL       string             `json:"url"`
	InfoURL   string             `json:"info_url"`
	Title     string             `json:"title"`
	DSG       dsg.Descriptor     `json:"dsg"`
	Coverage  coverage.Coverage  `json:"coverage"`
	TimeMarks map[int64]string   `json:"time_marks"`
	Variables []catalog.Variable `json:"variables"`
}

// Load fetches the info table of the dataset at url and classifies it.
func Load(ctx context.Context, fetcher Fetcher, url string) (*Dataset, error) {
	t, err := fetcher.FetchInfo(ctx, url)
	if err != nil {
		return nil, err
	}
	d, err := New(url, t)
	if err != nil {
		return nil, err
	}
	d.fetcher = fetcher
	return d, nil
}

// New classifies an info table that has already been read. The returned
// Dataset cannot fetch depths or observations.
func New(url string, t *table.Table) (*Dataset, error) {
	g, err := dsg.Describe(t)
	typ := ""
	if g != nil {
		typ = string(g.Type())
	}
	metrics.RecordClassification(typ, err)
	if err != nil {
		return nil, fmt.Errorf("classify %s: %w", url, err)
	}
	return &Dataset{URL: url, Table: t, Geometry: g}, nil
}

// Summary uses time.Local for naive coverage timestamps.
func (d *Dataset) Summary() (Summary, error) {
	return d.SummaryIn(time.Local)
}

func (d *Dataset) SummaryIn(loc *time.Location) (Summary, error) {
	title, err := catalog.Title(d.Table)
	if err != nil {
		return Summary{}, err
	}
	cov, err := coverage.GetIn(d.Table, loc)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		URL:       d.URL,
		InfoURL:   erddap.InfoURL(d.URL),
		Title:     title,
		DSG:       dsg.NewDescriptor(d.Geometry),
		Coverage:  cov,
		TimeMarks: coverage.TimeMarksIn(cov.StartSeconds, cov.EndSeconds, loc),
		Variables: catalog.ListVariables(d.Table),
	}, nil
}

// PlatformRole is the role whose identifier names a platform: the station
// or trajectory for composite geometries, the profile for plain profiles.
func PlatformRole(g dsg.Geometry) dsg.Role {
	switch g.Type() {
	case dsg.TypeTimeSeries, dsg.TypeTimeSeriesProfile:
		return dsg.RoleTimeSeries
	case dsg.TypeTrajectory, dsg.TypeTrajectoryProfile:
		return dsg.RoleTrajectory
	default:
		return dsg.RoleProfile
	}
}

// PlatformVariable returns the identifier variable of the platform role.
func (d *Dataset) PlatformVariable() string {
	return d.Geometry.Identifiers()[PlatformRole(d.Geometry)]
}

// PlatformConstraint selects rows whose platform identifier is any of values.
func (d *Dataset) PlatformConstraint(values any) constraint.Constraint {
	return constraint.Build(d.PlatformVariable(), values)
}

// Depths returns the distinct values of the vertical variable.
func (d *Dataset) Depths(ctx context.Context) ([]float64, error) {
	z, ok := d.Geometry.VerticalVariable()
	if !ok {
		return nil, &dsg.MissingVerticalVariableError{}
	}
	if d.fetcher == nil {
		return nil, fmt.Errorf("dataset %s was not loaded from a server", d.URL)
	}
	return d.fetcher.FetchDepths(ctx, d.URL, z)
}

// PlugGaps fetches the rows selected by query and fills their gaps. Empty
// TimeColumn and EntityColumn default to "time" and the platform variable.
func (d *Dataset) PlugGaps(ctx context.Context, query string, opts gapfill.Options) (*gapfill.Result, error) {
	if d.fetcher == nil {
		return nil, fmt.Errorf("dataset %s was not loaded from a server", d.URL)
	}
	if opts.TimeColumn == "" {
		opts.TimeColumn = DefaultTimeColumn
	}
	if opts.EntityColumn == "" {
		opts.EntityColumn = d.PlatformVariable()
	}
	f, err := d.fetcher.FetchObservations(ctx, d.URL, query, opts.TimeColumn)
	if err != nil {
		return nil, err
	}
	return Fill(ctx, f, opts)
}

// Fill runs gapfill.Fill and records the inserted rows.
func Fill(ctx context.Context, f *gapfill.Frame, opts gapfill.Options) (*gapfill.Result, error) {
	res, err := gapfill.Fill(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	metrics.GapRowsInsertedTotal.Add(float64(res.Inserted))
	return res, nil
}
