package dsg

import "fmt"

// UnsupportedTypeError is returned for a cdm_data_type that is not a DSG type.
type UnsupportedTypeError struct {
	Value string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported cdm_data_type %q", e.Value)
}

// MissingIdentifierError is returned when no variable carries cf_role=<role>_id.
type MissingIdentifierError struct {
	Role Role
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("no variable with cf_role=%s", e.Role.CFRole())
}

// MissingVerticalVariableError is returned for a profile-bearing dataset with neither a
// cdm_altitude_proxy nor a positive attribute.
type MissingVerticalVariableError struct{}

func (e *MissingVerticalVariableError) Error() string {
	return "no vertical variable: cdm_altitude_proxy and positive attributes are both absent"
}
