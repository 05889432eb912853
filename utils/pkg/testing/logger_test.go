package erddaptesting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInfo_Testing_Logger_WritesAfterTestEnds(t *testing.T) {
	t.Parallel()

	var w *testWriter
	t.Run("inner", func(t *testing.T) {
		w = &testWriter{tb: t}
		t.Cleanup(w.close)

		n, err := w.Write([]byte("during test\n"))
		require.NoError(t, err)
		require.Equal(t, len("during test\n"), n)
		require.False(t, w.closed)

		NewLogger(t).Error("fetch failed", "url", "https://example.org/erddap/info/x/index.csv")
	})

	require.True(t, w.closed)
	n, err := w.Write([]byte("after test\n"))
	require.NoError(t, err)
	require.Equal(t, len("after test\n"), n)
}
