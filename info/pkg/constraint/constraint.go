// Package constraint builds tabledap selection constraints on a DSG identifier variable.
package constraint

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

// Constraint is a query fragment and the identifier values it selects.
type Constraint struct {
	Expression string   `json:"con"`
	Values     []string `json:"platforms"`
}

// Build selects rows whose variable equals one of values. values may be nil, a scalar or a
// slice; one value yields an exact match, several yield a regular-expression alternation.
func Build(variable string, values any) Constraint {
	vs := Normalize(values)
	c := Constraint{Values: vs}
	switch len(vs) {
	case 0:
	case 1:
		c.Expression = variable + `="` + Escape(vs[0]) + `"`
	default:
		escaped := make([]string, len(vs))
		for i, v := range vs {
			escaped[i] = Escape(v)
		}
		c.Expression = variable + `=~"` + strings.Join(escaped, "|") + `"`
	}
	return c
}

// Normalize turns a scalar or a slice into an ordered list of strings. Duplicates are kept.
func Normalize(values any) []string {
	if values == nil {
		return []string{}
	}
	rv := reflect.ValueOf(values)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []string{}
		}
		out := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, stringify(rv.Index(i).Interface()))
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return []string{}
		}
		return Normalize(rv.Elem().Interface())
	}
	return []string{stringify(values)}
}

func stringify(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

const upperhex = "0123456789ABCDEF"

// Escape percent-encodes s for use inside a tabledap constraint. Letters, digits, "-._~" and
// "/" pass through; every other byte is encoded.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if shouldKeep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func shouldKeep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '.', '_', '~', '/':
		return true
	}
	return false
}
