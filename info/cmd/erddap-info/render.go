package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sdig/erddap/info/pkg/catalog"
	"github.com/sdig/erddap/info/pkg/dataset"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// renderOverview prints the dataset header without the variable list.
func renderOverview(w io.Writer, s dataset.Summary) {
	t := newTable(w)
	t.SetTitle(s.Title)
	t.AppendRow(table.Row{"URL", s.URL})
	t.AppendRow(table.Row{"Info", s.InfoURL})
	t.AppendRow(table.Row{"Geometry", string(s.DSG.Type)})

	roles := make([]string, 0, len(s.DSG.IdentifierVariables))
	for role, name := range s.DSG.IdentifierVariables {
		roles = append(roles, fmt.Sprintf("%s=%s", role.CFRole(), name))
	}
	sort.Strings(roles)
	t.AppendRow(table.Row{"Identifiers", strings.Join(roles, ", ")})
	if s.DSG.VerticalVariableName != nil {
		t.AppendRow(table.Row{"Vertical", *s.DSG.VerticalVariableName})
	}
	t.AppendRow(table.Row{"Coverage", s.Coverage.StartDate + " to " + s.Coverage.EndDate})
	t.Render()
}

func renderSummary(w io.Writer, s dataset.Summary) {
	renderOverview(w, s)
	renderVariables(w, s.Variables)
}

func renderVariables(w io.Writer, vars []catalog.Variable) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Long name", "Units", "Standard name", "Type"})
	for _, v := range vars {
		t.AppendRow(table.Row{v.Name, deref(v.LongName), deref(v.Units), deref(v.StandardName), deref(v.DataType)})
	}
	t.Render()
}

func renderDepths(w io.Writer, variable string, depths []float64) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", variable})
	for i, d := range depths {
		t.AppendRow(table.Row{i + 1, strconv.FormatFloat(d, 'f', -1, 64)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d values", len(depths))})
	t.Render()
}
