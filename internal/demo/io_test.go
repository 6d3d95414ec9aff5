package demo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/gomr/internal/jobfuncs"
)

func TestReadLines_SplitsOnNewline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree"), 0o644))

	lines, err := readLines(path)
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three"}, lines)
}

func TestWriteAndReadShuffleFiles_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := []jobfuncs.KeyValue{{Key: "x", Value: "1"}, {Key: "y", Value: "2"}}
	b := []jobfuncs.KeyValue{{Key: "x", Value: "3"}}

	require.NoError(t, writeShuffleFile(dir, 0, 1, a))
	require.NoError(t, writeShuffleFile(dir, 1, 1, b))
	// Different partition; must not be picked up by readShuffleFiles(dir, 1).
	require.NoError(t, writeShuffleFile(dir, 0, 2, a))

	kvs, err := readShuffleFiles(dir, 1)
	require.NoError(t, err)
	require.Len(t, kvs, 3)
}

func TestReduceSorted_GroupsByKey(t *testing.T) {
	sorted := []jobfuncs.KeyValue{
		{Key: "a", Value: "1"},
		{Key: "a", Value: "1"},
		{Key: "b", Value: "1"},
	}
	out := reduceSorted(sorted, func(key string, values []string) jobfuncs.KeyValue {
		return jobfuncs.KeyValue{Key: key, Value: values[0] + "x" + values[len(values)-1]}
	})
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].Key)
	require.Equal(t, "b", out[1].Key)
}

func TestWriteResults_TabSeparated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.tsv")
	require.NoError(t, writeResults(path, []jobfuncs.KeyValue{{Key: "k", Value: "v"}}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "k\tv\n", string(content))
}
