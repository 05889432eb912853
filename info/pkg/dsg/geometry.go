package dsg

import (
	"github.com/sdig/erddap/info/pkg/table"
)

// Geometry is one of TimeSeries, Profile, Trajectory, TimeSeriesProfile or TrajectoryProfile.
type Geometry interface {
	Type() Type
	// Identifiers maps each role to the variable holding its identifier.
	Identifiers() map[Role]string
	// VerticalVariable is the depth/altitude variable of profile-bearing geometries.
	VerticalVariable() (string, bool)

	geometry()
}

type TimeSeries struct {
	TimeSeriesID string
}

type Profile struct {
	ProfileID string
	Vertical  string
}

type Trajectory struct {
	TrajectoryID string
}

type TimeSeriesProfile struct {
	TimeSeriesID string
	ProfileID    string
	Vertical     string
}

type TrajectoryProfile struct {
	TrajectoryID string
	ProfileID    string
	Vertical     string
}

func (TimeSeries) Type() Type        { return TypeTimeSeries }
func (Profile) Type() Type           { return TypeProfile }
func (Trajectory) Type() Type        { return TypeTrajectory }
func (TimeSeriesProfile) Type() Type { return TypeTimeSeriesProfile }
func (TrajectoryProfile) Type() Type { return TypeTrajectoryProfile }

func (g TimeSeries) Identifiers() map[Role]string {
	return map[Role]string{RoleTimeSeries: g.TimeSeriesID}
}

func (g Profile) Identifiers() map[Role]string {
	return map[Role]string{RoleProfile: g.ProfileID}
}

func (g Trajectory) Identifiers() map[Role]string {
	return map[Role]string{RoleTrajectory: g.TrajectoryID}
}

func (g TimeSeriesProfile) Identifiers() map[Role]string {
	return map[Role]string{RoleTimeSeries: g.TimeSeriesID, RoleProfile: g.ProfileID}
}

func (g TrajectoryProfile) Identifiers() map[Role]string {
	return map[Role]string{RoleTrajectory: g.TrajectoryID, RoleProfile: g.ProfileID}
}

func (TimeSeries) VerticalVariable() (string, bool)          { return "", false }
func (g Profile) VerticalVariable() (string, bool)           { return g.Vertical, true }
func (Trajectory) VerticalVariable() (string, bool)          { return "", false }
func (g TimeSeriesProfile) VerticalVariable() (string, bool) { return g.Vertical, true }
func (g TrajectoryProfile) VerticalVariable() (string, bool) { return g.Vertical, true }

func (TimeSeries) geometry()        {}
func (Profile) geometry()           {}
func (Trajectory) geometry()        {}
func (TimeSeriesProfile) geometry() {}
func (TrajectoryProfile) geometry() {}

// Resolve finds the identifier and vertical variables required by typ.
func Resolve(typ Type, t *table.Table) (Geometry, error) {
	switch typ {
	case TypeTimeSeries:
		id, err := identifier(t, RoleTimeSeries)
		if err != nil {
			return nil, err
		}
		return TimeSeries{TimeSeriesID: id}, nil

	case TypeTrajectory:
		id, err := identifier(t, RoleTrajectory)
		if err != nil {
			return nil, err
		}
		return Trajectory{TrajectoryID: id}, nil

	case TypeProfile:
		id, err := identifier(t, RoleProfile)
		if err != nil {
			return nil, err
		}
		z, err := vertical(t)
		if err != nil {
			return nil, err
		}
		return Profile{ProfileID: id, Vertical: z}, nil

	case TypeTimeSeriesProfile:
		profileID, err := identifier(t, RoleProfile)
		if err != nil {
			return nil, err
		}
		seriesID, err := identifier(t, RoleTimeSeries)
		if err != nil {
			return nil, err
		}
		z, err := vertical(t)
		if err != nil {
			return nil, err
		}
		return TimeSeriesProfile{TimeSeriesID: seriesID, ProfileID: profileID, Vertical: z}, nil

	case TypeTrajectoryProfile:
		profileID, err := identifier(t, RoleProfile)
		if err != nil {
			return nil, err
		}
		trajectoryID, err := identifier(t, RoleTrajectory)
		if err != nil {
			return nil, err
		}
		z, err := vertical(t)
		if err != nil {
			return nil, err
		}
		return TrajectoryProfile{TrajectoryID: trajectoryID, ProfileID: profileID, Vertical: z}, nil
	}

	return nil, &UnsupportedTypeError{Value: string(typ)}
}

// identifier returns the variable carrying cf_role=<role>_id.
func identifier(t *table.Table, role Role) (string, error) {
	rows := t.Filter(func(r table.Row) bool {
		return r.Type == table.RowTypeAttribute && r.AttributeName == "cf_role" && r.Value == role.CFRole()
	})
	names := table.Distinct(rows, func(r table.Row) string { return r.VariableName })
	switch len(names) {
	case 0:
		return "", &MissingIdentifierError{Role: role}
	case 1:
		return names[0], nil
	default:
		return "", &table.AmbiguousMetadataError{Attribute: "cf_role=" + role.CFRole(), Values: names}
	}
}

// vertical prefers the global cdm_altitude_proxy, then the variable with a positive attribute.
func vertical(t *table.Table) (string, error) {
	proxy, found, err := t.Lookup(table.Global, "cdm_altitude_proxy")
	if err != nil {
		return "", err
	}
	if found {
		return proxy, nil
	}

	names := table.Distinct(t.Attributes("", "positive"), func(r table.Row) string { return r.VariableName })
	switch len(names) {
	case 0:
		return "", &MissingVerticalVariableError{}
	case 1:
		return names[0], nil
	default:
		return "", &table.AmbiguousMetadataError{Attribute: "positive", Values: names}
	}
}
