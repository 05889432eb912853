// Package tabletest provides info-table fixtures captured from public ERDDAP servers.
package tabletest

import (
	"bytes"
	"embed"
	"testing"

	"github.com/sdig/erddap/info/pkg/table"
	"github.com/stretchr/testify/require"
)

//go:embed data/*.csv
var files embed.FS

// Raw returns the bytes of a fixture file under data/.
func Raw(t testing.TB, name string) []byte {
	t.Helper()
	b, err := files.ReadFile("data/" + name)
	require.NoError(t, err)
	return b
}

// Load parses a fixture file under data/.
func Load(t testing.TB, name string) *table.Table {
	t.Helper()
	tbl, err := table.Read(bytes.NewReader(Raw(t, name)))
	require.NoError(t, err)
	return tbl
}

// CGBNCanada is the timeseries dataset tabledap/CGBN_Canada.
func CGBNCanada(t testing.TB) *table.Table {
	return Load(t, "cgbn_canada.csv")
}

// DY1104Profile is the profile dataset tabledap/dy1104_profile_data.
func DY1104Profile(t testing.TB) *table.Table {
	return Load(t, "dy1104_profile.csv")
}
