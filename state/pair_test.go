package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortPairs(t *testing.T) {
	pairs := []Pair[string, int]{
		{V1: "b", V2: 2},
		{V1: "a", V2: 9},
		{V1: "a", V2: 1},
		{V1: "c", V2: 0},
	}
	SortPairs(pairs)
	assert.Equal(t, []Pair[string, int]{
		{V1: "a", V2: 1},
		{V1: "a", V2: 9},
		{V1: "b", V2: 2},
		{V1: "c", V2: 0},
	}, pairs)
}

func TestMakeSortedPair(t *testing.T) {
	assert.Equal(t, Pair[NodeId, NodeId]{"a", "b"}, MakeSortedPair[NodeId]("b", "a"))
	assert.Equal(t, Pair[NodeId, NodeId]{"a", "b"}, MakeSortedPair[NodeId]("a", "b"))
	assert.Equal(t, Pair[int, int]{3, 3}, MakeSortedPair(3, 3))
}
