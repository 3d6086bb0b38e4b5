package flexophore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/flexophore/internal/domain/interaction"
	"github.com/turtacn/flexophore/internal/domain/pharmacophore"
	"github.com/turtacn/flexophore/pkg/errors"
)

func triangle(d01, d02, d12 float64) *pharmacophore.CompleteGraph {
	return &pharmacophore.CompleteGraph{
		Nodes: []pharmacophore.Node{
			pharmacophore.NewNode(0, interaction.Donor),
			pharmacophore.NewNode(3, interaction.Acceptor),
			pharmacophore.NewNode(5, interaction.Hydrophobic),
		},
		Dist: [][]float64{{0, d01, d02}, {d01, 0, d12}, {d02, d12, 0}},
	}
}

func TestBuild_RaggedPairsAreRejected(t *testing.T) {
	a, err := NewAggregator(triangle(1, 2, 3), 1)
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		require.NoError(t, a.Add(triangle(1, 2, 3)))
	}

	// within tolerance
	a.distances[1] = append(a.distances[1], 2, 2, 2, 2, 2)
	_, err = a.Build()
	require.NoError(t, err)

	a.distances[2] = append(a.distances[2], 3, 3, 3, 3, 3, 3)
	_, err = a.Build()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeHistogramInconsistent))
}

func TestBinOf(t *testing.T) {
	assert.Equal(t, 0, binOf(0))
	assert.Equal(t, 0, binOf(0.49))
	assert.Equal(t, 1, binOf(0.5))
	assert.Equal(t, 79, binOf(39.99))
	assert.Equal(t, 79, binOf(40), "clamped")
}
