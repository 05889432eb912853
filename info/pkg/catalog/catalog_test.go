package catalog_test

import (
	"testing"

	"github.com/sdig/erddap/info/pkg/catalog"
	"github.com/sdig/erddap/info/pkg/table"
	"github.com/sdig/erddap/info/pkg/table/tabletest"
	"github.com/stretchr/testify/require"
)

func byName(vars []catalog.Variable) map[string]catalog.Variable {
	out := make(map[string]catalog.Variable, len(vars))
	for _, v := range vars {
		out[v.Name] = v
	}
	return out
}

func TestInfo_Catalog_ListVariables(t *testing.T) {
	t.Parallel()

	t.Run("fixture", func(t *testing.T) {
		t.Parallel()

		vars := catalog.ListVariables(tabletest.CGBNCanada(t))

		names := make([]string, 0, len(vars))
		for _, v := range vars {
			names = append(names, v.Name)
		}
		require.Equal(t, []string{"ID", "time", "latitude", "longitude", "QS", "TAU"}, names)

		m := byName(vars)
		require.Equal(t, "Ship id", *m["ID"].LongName)
		require.Equal(t, "W/m2", *m["QS"].Units)
		require.Equal(t, "latitude", *m["latitude"].StandardName)
		require.Equal(t, "String", *m["ID"].DataType)
		require.Equal(t, "float", *m["TAU"].DataType)
		require.Nil(t, m["ID"].Units)
		require.Nil(t, m["QS"].StandardName)
	})

	t.Run("first attribute row wins and only the first letter changes", func(t *testing.T) {
		t.Parallel()

		vars := catalog.ListVariables(table.New(
			table.Attribute(table.Global, "title", "x"),
			table.Attribute("sst", "long_name", "sea surface Temperature"),
			table.Attribute("sst", "long_name", "ignored"),
			table.Attribute("sst", "units", "degree_C"),
			table.Attribute("sst", "units", "K"),
			table.Attribute("sst", "standard_name", "42"),
		))
		require.Len(t, vars, 1)
		require.Equal(t, "Sea surface Temperature", *vars[0].LongName)
		require.Equal(t, "degree_C", *vars[0].Units)
		require.Equal(t, "42", *vars[0].StandardName)
		require.Nil(t, vars[0].DataType)
	})

	t.Run("variable rows without attributes are not listed", func(t *testing.T) {
		t.Parallel()

		vars := catalog.ListVariables(table.New(
			table.Variable("bare", "int"),
			table.Variable("wind", "float"),
			table.Attribute("wind", "units", "m/s"),
		))
		require.Len(t, vars, 1)
		require.Equal(t, "wind", vars[0].Name)
		require.Equal(t, "float", *vars[0].DataType)
	})

	t.Run("non-letter and empty long names", func(t *testing.T) {
		t.Parallel()

		vars := byName(catalog.ListVariables(table.New(
			table.Attribute("a", "long_name", "2m temperature"),
			table.Attribute("b", "long_name", ""),
			table.Attribute("c", "long_name", "élévation"),
		)))
		require.Equal(t, "2m temperature", *vars["a"].LongName)
		require.Equal(t, "", *vars["b"].LongName)
		require.Equal(t, "Élévation", *vars["c"].LongName)
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		tbl := tabletest.DY1104Profile(t)
		require.Equal(t, catalog.ListVariables(tbl), catalog.ListVariables(tbl))
	})
}

func TestInfo_Catalog_Title(t *testing.T) {
	t.Parallel()

	title, err := catalog.Title(tabletest.CGBNCanada(t))
	require.NoError(t, err)
	require.Equal(t, "CGBN Canadian Arctic Flux 1993-1999", title)

	_, err = catalog.Title(table.New())
	require.Error(t, err)
}
