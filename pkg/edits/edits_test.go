package edits

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	input := "r1\tFOO\r\n" +
		"\n" +
		"r2\t\t4\n" +
		"r3\n" +
		"r4\tZA:BAR\t16\n" +
		"r5\t\n"
	table, err := Load(strings.NewReader(input), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, Table{
		"r1": {Tag: "FOO"},
		"r2": {Flag: 4, HasFlag: true},
		"r3": {},
		"r4": {Tag: "ZA:BAR", Flag: 16, HasFlag: true},
		"r5": {},
	}, table)
	assert.True(t, table["r3"].IsEmpty())
	assert.False(t, table["r2"].IsEmpty())
}

func TestLoadLastDuplicateWins(t *testing.T) {
	table, err := Load(strings.NewReader("r1\tA\nr1\tB\n"), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "B", table["r1"].Tag)
}

func TestLoadInvalidFlag(t *testing.T) {
	for _, input := range []string{"r1\tFOO\tx\n", "r1\t\t70000\n", "r1\t\t-1\n"} {
		_, err := Load(strings.NewReader("r0\n"+input), LoadOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrParse)
		assert.Contains(t, err.Error(), "line 2")
	}
}

func TestLoadProgress(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString("r\n")
	}
	var calls []int
	_, err := Load(strings.NewReader(b.String()), LoadOptions{
		Tick:     10,
		Progress: func(lines int) { calls = append(calls, lines) },
	})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, calls)
}

func TestCapacityHintDoesNotChangeResult(t *testing.T) {
	input := "r1\tFOO\nr2\t\t4\n"
	for _, capacity := range []int{-5, 0, 1, 1 << 16} {
		table, err := Load(strings.NewReader(input), LoadOptions{Capacity: capacity})
		require.NoError(t, err)
		assert.Len(t, table, 2)
	}
}

func TestEstimateLines(t *testing.T) {
	assert.Equal(t, 10, EstimateLines(210, "read_000001\tZA:FOO\t4"))
	assert.Equal(t, 4, EstimateLines(70, "r1\tFOO"))
	assert.Equal(t, 0, EstimateLines(0, "r1"))
}

func TestEstimateLinesIsBounded(t *testing.T) {
	size := int64(20 << 20)
	assert.Zero(t, EstimateLines(size, ""))
	assert.Zero(t, EstimateLines(size, "\r"))
	assert.Equal(t, 65536, EstimateLines(1<<20, "r"))
	assert.Equal(t, maxCapacityHint, EstimateLines(size, "r"))
	assert.Equal(t, maxCapacityHint, EstimateLines(1<<40, "read_000001\tZA:FOO"))
}

func TestCapacityHint(t *testing.T) {
	assert.Equal(t, 0, capacityHint(-5))
	assert.Equal(t, 10, capacityHint(10))
	assert.Equal(t, maxCapacityHint, capacityHint(1<<30))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qnames.tsv")
	require.NoError(t, os.WriteFile(path, []byte("r1\tFOO\nr2\t\t4\nr3\n"), 0644))

	n, err := estimateFileLines(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	table, err := LoadFile(context.Background(), path, LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, table, 3)
}

func TestLoadFileBlankFirstLine(t *testing.T) {
	var b strings.Builder
	b.WriteString("\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&b, "read_%06d\tZA:FOO\t4\n", i)
	}
	path := filepath.Join(t.TempDir(), "qnames.tsv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	n, err := estimateFileLines(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, n)

	table, err := LoadFile(context.Background(), path, LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, table, 1000)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "absent"), LoadOptions{})
	assert.ErrorIs(t, err, errs.ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
