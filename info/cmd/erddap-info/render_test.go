package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sdig/erddap/info/pkg/dataset"
	"github.com/sdig/erddap/info/pkg/table/tabletest"
	"github.com/stretchr/testify/require"
)

func TestInfo_CLI_RenderSummary(t *testing.T) {
	t.Parallel()

	ds, err := dataset.New("https://data.pmel.noaa.gov/pmel/erddap/tabledap/dy1104_profile_data", tabletest.DY1104Profile(t))
	require.NoError(t, err)
	s, err := ds.Summary()
	require.NoError(t, err)

	var buf bytes.Buffer
	renderSummary(&buf, s)
	out := strings.ToLower(buf.String())
	require.Contains(t, out, "dy1104 ctd profiles")
	require.Contains(t, out, "profile_id=id")
	require.Contains(t, out, "depth")
	require.Contains(t, out, "2011-04-18")
}

func TestInfo_CLI_RenderDepths(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderDepths(&buf, "depth", []float64{2, 10.5})
	out := strings.ToLower(buf.String())
	require.Contains(t, out, "10.5")
	require.Contains(t, out, "2 values")
}
