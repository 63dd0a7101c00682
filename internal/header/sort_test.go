package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hdr(path string, contains, depends []string) *HeaderFile {
	return &HeaderFile{Path: path, Contains: contains, Depends: depends}
}

func paths(headers []*HeaderFile) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = h.Path
	}
	return out
}

func indexOf(t *testing.T, headers []*HeaderFile, path string) int {
	t.Helper()
	for i, h := range headers {
		if h.Path == path {
			return i
		}
	}
	t.Fatalf("header %s not in result", path)
	return -1
}

func TestSortOrdersBasesFirst(t *testing.T) {
	base := hdr("vpArray2D.h", []string{"vpArray2D"}, nil)
	matrix := hdr("vpMatrix.h", []string{"vpMatrix"}, []string{"vpArray2D"})
	vector := hdr("vpColVector.h", []string{"vpColVector"}, []string{"vpArray2D"})
	rotation := hdr("vpRotationMatrix.h", []string{"vpRotationMatrix"}, []string{"vpMatrix"})

	sorted, ok := Sort([]*HeaderFile{rotation, vector, matrix, base})
	require.True(t, ok)
	require.Len(t, sorted, 4)

	assert.Less(t, indexOf(t, sorted, "vpArray2D.h"), indexOf(t, sorted, "vpMatrix.h"))
	assert.Less(t, indexOf(t, sorted, "vpArray2D.h"), indexOf(t, sorted, "vpColVector.h"))
	assert.Less(t, indexOf(t, sorted, "vpMatrix.h"), indexOf(t, sorted, "vpRotationMatrix.h"))
}

func TestSortRequiresAllDependencies(t *testing.T) {
	a := hdr("vpA.h", []string{"vpA"}, nil)
	b := hdr("vpB.h", []string{"vpB"}, nil)
	// Both bases must already be admitted, one is not enough.
	c := hdr("vpC.h", []string{"vpC"}, []string{"vpA", "vpB"})

	sorted, ok := Sort([]*HeaderFile{c, a, b})
	require.True(t, ok)
	assert.Equal(t, "vpC.h", sorted[2].Path)
}

func TestSortCycleKeepsAllHeaders(t *testing.T) {
	a := hdr("vpA.h", []string{"vpA"}, []string{"vpB"})
	b := hdr("vpB.h", []string{"vpB"}, []string{"vpA"})
	c := hdr("vpC.h", []string{"vpC"}, nil)

	input := []*HeaderFile{a, b, c}
	sorted, ok := Sort(input)
	assert.False(t, ok)
	// Degraded result is a permutation: nothing dropped, nothing
	// duplicated, and the cyclic headers keep their input order.
	require.Len(t, sorted, 3)
	assert.ElementsMatch(t, []string{"vpA.h", "vpB.h", "vpC.h"}, paths(sorted))
	assert.Less(t, indexOf(t, sorted, "vpA.h"), indexOf(t, sorted, "vpB.h"))
}

func TestSortUnknownDependencyDegrades(t *testing.T) {
	a := hdr("vpA.h", []string{"vpA"}, []string{"vpNowhere"})

	sorted, ok := Sort([]*HeaderFile{a})
	assert.False(t, ok)
	require.Len(t, sorted, 1)
}

func TestSortEmpty(t *testing.T) {
	sorted, ok := Sort(nil)
	assert.True(t, ok)
	assert.Empty(t, sorted)
}

func TestDependenciesOfTransitive(t *testing.T) {
	base := hdr("vpArray2D.h", []string{"vpArray2D"}, nil)
	matrix := hdr("vpMatrix.h", []string{"vpMatrix"}, []string{"vpArray2D"})
	rotation := hdr("vpRotationMatrix.h", []string{"vpRotationMatrix"}, []string{"vpMatrix"})
	unrelated := hdr("vpIo.h", []string{"vpIo"}, nil)

	sorted, ok := Sort([]*HeaderFile{rotation, matrix, base, unrelated})
	require.True(t, ok)

	deps := DependenciesOf(rotation, sorted)
	assert.Equal(t, []string{"vpArray2D.h", "vpMatrix.h"}, paths(deps))

	assert.Empty(t, DependenciesOf(base, sorted))
	assert.Empty(t, DependenciesOf(unrelated, sorted))
}
