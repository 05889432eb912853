// Package gapfill inserts missing-value rows into per-entity time series so that plots break
// the line across outages instead of interpolating over them.
//
// Rows must already be in time order within each entity; Fill validates this and never sorts.
package gapfill

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Options configures Fill.
type Options struct {
	// TimeColumn holds time.Time values.
	TimeColumn string
	// EntityColumn identifies the series each row belongs to.
	EntityColumn string
	// Keep lists columns whose value is copied into inserted rows from the row after the gap.
	Keep []string
	// StdDevMultiplier scales the standard deviation of the spacing to form the gap threshold.
	StdDevMultiplier float64
	// MaxConcurrency bounds the number of entities processed at once. Defaults to GOMAXPROCS.
	MaxConcurrency int
}

// Result is the filled frame and the number of rows Fill inserted.
type Result struct {
	Frame    *Frame
	Inserted int
}

type group struct {
	entity any
	rows   []int
}

// Fill returns a copy of f with one midpoint row inserted in every gap. For each entity the
// successive time differences are summarised by their mean and sample standard deviation;
// when multiplier*std exceeds the mean, every difference above multiplier*std is a gap.
// Inserted rows take the midpoint time, copy Keep columns from the row after the gap and hold
// NaN (float cells) or nil elsewhere. Entities appear in first-seen order.
func Fill(ctx context.Context, f *Frame, opts Options) (*Result, error) {
	ti := f.Index(opts.TimeColumn)
	if ti < 0 {
		return nil, &ColumnError{Column: opts.TimeColumn}
	}
	ei := f.Index(opts.EntityColumn)
	if ei < 0 {
		return nil, &ColumnError{Column: opts.EntityColumn}
	}
	keep := make([]bool, len(f.Columns))
	for _, k := range opts.Keep {
		i := f.Index(k)
		if i < 0 {
			return nil, &ColumnError{Column: k}
		}
		keep[i] = true
	}

	for i, row := range f.Rows {
		if _, ok := cellAt(row, ti).(time.Time); !ok {
			return nil, &TimeValueError{Row: i, Value: cellAt(row, ti)}
		}
	}

	groups := groupByEntity(f.Rows, ei)

	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	filled := make([][][]any, len(groups))
	inserted := make([]int, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for gi := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, n, err := fillGroup(f, groups[gi], ti, keep, opts.StdDevMultiplier)
			if err != nil {
				return err
			}
			filled[gi] = rows
			inserted[gi] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Frame{Columns: append([]string(nil), f.Columns...)}
	res := &Result{Frame: out}
	for gi := range groups {
		out.Rows = append(out.Rows, filled[gi]...)
		res.Inserted += inserted[gi]
	}
	return res, nil
}

// groupByEntity splits row indices by entity value, preserving first-seen order.
func groupByEntity(rows [][]any, ei int) []group {
	var groups []group
	index := make(map[any]int)
	for i, row := range rows {
		k := entityKey(cellAt(row, ei))
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, group{entity: cellAt(row, ei)})
		}
		groups[gi].rows = append(groups[gi].rows, i)
	}
	return groups
}

// nanEntity is the grouping key shared by all NaN entity values, which never compare equal.
type nanEntity struct{}

func entityKey(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			return nanEntity{}
		}
	case float32:
		if math.IsNaN(float64(x)) {
			return nanEntity{}
		}
	}
	if !reflect.TypeOf(v).Comparable() {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return v
}

func fillGroup(f *Frame, grp group, ti int, keep []bool, multiplier float64) ([][]any, int, error) {
	times := make([]time.Time, len(grp.rows))
	for j, ri := range grp.rows {
		times[j] = f.Rows[ri][ti].(time.Time)
		if j > 0 && times[j].Before(times[j-1]) {
			return nil, 0, &UnsortedError{Entity: grp.entity, Row: ri}
		}
	}

	out := make([][]any, 0, len(grp.rows))
	copyRow := func(ri int) {
		out = append(out, append([]any(nil), f.Rows[ri]...))
	}

	// Sample std is undefined below two differences.
	if len(times) < 3 {
		for _, ri := range grp.rows {
			copyRow(ri)
		}
		return out, 0, nil
	}

	diffs := make([]float64, len(times)-1)
	for j := 1; j < len(times); j++ {
		diffs[j-1] = times[j].Sub(times[j-1]).Seconds()
	}
	mean, std := stat.MeanStdDev(diffs, nil)
	threshold := multiplier * std
	detect := threshold > mean

	inserted := 0
	copyRow(grp.rows[0])
	for j := 1; j < len(grp.rows); j++ {
		if detect && diffs[j-1] > threshold {
			out = append(out, gapRow(f.Rows[grp.rows[j]], len(f.Columns), ti, keep, times[j-1], times[j]))
			inserted++
		}
		copyRow(grp.rows[j])
	}
	return out, inserted, nil
}

func gapRow(after []any, width, ti int, keep []bool, before, next time.Time) []any {
	row := make([]any, width)
	for i := range row {
		switch {
		case i == ti:
			row[i] = before.Add(next.Sub(before) / 2)
		case keep[i]:
			row[i] = cellAt(after, i)
		default:
			row[i] = missing(cellAt(after, i))
		}
	}
	return row
}

// missing is the absent-value marker matching the type of sample.
func missing(sample any) any {
	switch sample.(type) {
	case float64:
		return math.NaN()
	case float32:
		return float32(math.NaN())
	}
	return nil
}
