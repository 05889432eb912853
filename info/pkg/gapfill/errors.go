package gapfill

import "fmt"

// ColumnError reports a column that the frame does not have.
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("frame has no column %q", e.Column)
}

// TimeValueError reports a time-column cell that is not a time.Time.
type TimeValueError struct {
	Row   int
	Value any
}

func (e *TimeValueError) Error() string {
	return fmt.Sprintf("row %d: time value %v (%T) is not a time.Time", e.Row, e.Value, e.Value)
}

// UnsortedError reports an entity whose rows are not in time order.
type UnsortedError struct {
	Entity any
	Row    int
}

func (e *UnsortedError) Error() string {
	return fmt.Sprintf("rows for %v are not time ordered at row %d", e.Entity, e.Row)
}
