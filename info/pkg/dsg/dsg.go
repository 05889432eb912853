// Package dsg resolves the CF Discrete Sampling Geometry of a dataset from its info table.
package dsg

import (
	"strings"

	"github.com/sdig/erddap/info/pkg/table"
)

// Type is a lower-cased cdm_data_type tag.
type Type string

const (
	TypeTimeSeries        Type = "timeseries"
	TypeProfile           Type = "profile"
	TypeTrajectory        Type = "trajectory"
	TypeTimeSeriesProfile Type = "timeseriesprofile"
	TypeTrajectoryProfile Type = "trajectoryprofile"
)

// Types lists the supported geometry types.
var Types = []Type{TypeTimeSeries, TypeProfile, TypeTrajectory, TypeTimeSeriesProfile, TypeTrajectoryProfile}

// Role is the part a cf_role identifier variable plays in a geometry.
type Role string

const (
	RoleTimeSeries Role = "timeseries"
	RoleProfile    Role = "profile"
	RoleTrajectory Role = "trajectory"
)

// CFRole is the cf_role attribute value that marks the identifier for r.
func (r Role) CFRole() string {
	return string(r) + "_id"
}

// ParseType validates a cdm_data_type value, case-insensitively.
func ParseType(s string) (Type, error) {
	typ := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types {
		if typ == known {
			return typ, nil
		}
	}
	return "", &UnsupportedTypeError{Value: s}
}

// Roles returns the identifier roles a type carries, profile first for composites.
func (t Type) Roles() []Role {
	switch t {
	case TypeTimeSeries:
		return []Role{RoleTimeSeries}
	case TypeProfile:
		return []Role{RoleProfile}
	case TypeTrajectory:
		return []Role{RoleTrajectory}
	case TypeTimeSeriesProfile:
		return []Role{RoleProfile, RoleTimeSeries}
	case TypeTrajectoryProfile:
		return []Role{RoleProfile, RoleTrajectory}
	}
	return nil
}

// HasVertical reports whether the type is profile-bearing.
func (t Type) HasVertical() bool {
	switch t {
	case TypeProfile, TypeTimeSeriesProfile, TypeTrajectoryProfile:
		return true
	}
	return false
}

// Classify returns the lower-cased global cdm_data_type. Values differing only in case name
// the same type. The value is not validated here; Resolve rejects unknown types.
func Classify(t *table.Table) (Type, error) {
	const attribute = "cdm_data_type"
	values := table.Distinct(t.Attributes(table.Global, attribute), func(r table.Row) string {
		return strings.ToLower(strings.TrimSpace(r.Value))
	})
	switch len(values) {
	case 0:
		return "", &table.MissingAttributeError{Variable: table.Global, Attribute: attribute}
	case 1:
		return Type(values[0]), nil
	default:
		return "", &table.AmbiguousMetadataError{Variable: table.Global, Attribute: attribute, Values: values}
	}
}

// Describe classifies the table and resolves its geometry.
func Describe(t *table.Table) (Geometry, error) {
	typ, err := Classify(t)
	if err != nil {
		return nil, err
	}
	return Resolve(typ, t)
}
