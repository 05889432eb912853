package dsg

// Descriptor is the flattened, serialisable form of a Geometry.
type Descriptor struct {
	Type                 Type            `json:"dsg_type"`
	IdentifierVariables  map[Role]string `json:"identifier_variables"`
	VerticalVariableName *string         `json:"vertical_variable_name"`
}

// NewDescriptor flattens g.
func NewDescriptor(g Geometry) Descriptor {
	d := Descriptor{
		Type:                g.Type(),
		IdentifierVariables: g.Identifiers(),
	}
	if z, ok := g.VerticalVariable(); ok {
		d.VerticalVariableName = &z
	}
	return d
}
