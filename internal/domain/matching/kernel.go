// Package matching scores the similarity of two Flexophore descriptors by
// searching for the best correspondence between their pharmacophore nodes.
package matching

import (
	"github.com/turtacn/flexophore/internal/domain/interaction"
)

// NodeKernel compares the class sets of two nodes using an interaction
// distance table.  It is safe for concurrent use.
type NodeKernel struct {
	table *interaction.DistanceTable
}

func NewNodeKernel(table *interaction.DistanceTable) *NodeKernel {
	return &NodeKernel{table: table}
}

// TableVersion is the version of the bound distance table.
func (k *NodeKernel) TableVersion() int { return k.table.Version() }

// Similarity returns a score in [0, 1].  When base has more classes than
// query, every base class is matched with its best query class and the best
// values are multiplied; otherwise every query class is matched against base.
// Unmatched slots of the conceptual square similarity matrix are zero and so
// never chosen as a best match.
func (k *NodeKernel) Similarity(query, base []interaction.ClassID) float64 {
	if len(query) == 0 || len(base) == 0 {
		return 0
	}
	prod := 1.0
	if len(base) > len(query) {
		for _, b := range base {
			best := 0.0
			for _, q := range query {
				best = max(best, k.table.Similarity(q, b))
			}
			prod *= best
		}
		return prod
	}
	for _, q := range query {
		best := 0.0
		for _, b := range base {
			best = max(best, k.table.Similarity(q, b))
		}
		prod *= best
	}
	return prod
}
