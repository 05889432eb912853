package table

import (
	"fmt"
	"strings"
)

// MissingAttributeError reports a required attribute that the table does not carry.
type MissingAttributeError struct {
	Variable  string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("missing attribute %s", e.Attribute)
	}
	return fmt.Sprintf("missing attribute %s:%s", e.Variable, e.Attribute)
}

// AmbiguousMetadataError reports more than one distinct value where one was expected.
type AmbiguousMetadataError struct {
	Variable  string
	Attribute string
	Values    []string
}

func (e *AmbiguousMetadataError) Error() string {
	name := e.Attribute
	if e.Variable != "" {
		name = e.Variable + ":" + e.Attribute
	}
	return fmt.Sprintf("ambiguous metadata for %s: %d distinct values [%s]", name, len(e.Values), strings.Join(e.Values, ", "))
}
