// Package catalog lists the data variables of a dataset and their descriptive attributes.
package catalog

import (
	"unicode"
	"unicode/utf8"

	"github.com/sdig/erddap/info/pkg/table"
)

// Variable describes one data variable. Nil fields are attributes the dataset does not carry.
type Variable struct {
	Name         string  `json:"name"`
	LongName     *string `json:"long_name,omitempty"`
	Units        *string `json:"units,omitempty"`
	StandardName *string `json:"standard_name,omitempty"`
	DataType     *string `json:"data_type,omitempty"`
}

// ListVariables returns every non-global variable referenced by an attribute row, in table order.
func ListVariables(t *table.Table) []Variable {
	attrRows := t.Filter(func(r table.Row) bool {
		return r.Type == table.RowTypeAttribute && r.VariableName != table.Global
	})
	names := table.Distinct(attrRows, func(r table.Row) string { return r.VariableName })

	longNames := firstByVariable(attrRows, "long_name")
	units := firstByVariable(attrRows, "units")
	standardNames := firstByVariable(attrRows, "standard_name")

	dataTypes := make(map[string]string)
	for _, r := range t.Filter(func(r table.Row) bool { return r.Type == table.RowTypeVariable }) {
		if _, ok := dataTypes[r.VariableName]; !ok {
			dataTypes[r.VariableName] = r.DataType
		}
	}

	vars := make([]Variable, 0, len(names))
	for _, name := range names {
		v := Variable{Name: name}
		if s, ok := longNames[name]; ok {
			s = capitalizeFirst(s)
			v.LongName = &s
		}
		if s, ok := units[name]; ok {
			v.Units = &s
		}
		if s, ok := standardNames[name]; ok {
			v.StandardName = &s
		}
		if s, ok := dataTypes[name]; ok {
			v.DataType = &s
		}
		vars = append(vars, v)
	}
	return vars
}

// Title returns the global title attribute.
func Title(t *table.Table) (string, error) {
	return t.Global("title")
}

func firstByVariable(rows []table.Row, attribute string) map[string]string {
	out := make(map[string]string)
	for _, r := range rows {
		if r.AttributeName != attribute {
			continue
		}
		if _, ok := out[r.VariableName]; !ok {
			out[r.VariableName] = r.Value
		}
	}
	return out
}

// capitalizeFirst upper-cases the first rune only; "sea surface Temp" -> "Sea surface Temp".
func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
