package flexophore

import (
	"context"
	"slices"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	domain "github.com/turtacn/flexophore/internal/domain/flexophore"
	"github.com/turtacn/flexophore/internal/domain/molecule"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexophore/pkg/errors"
)

// RankInput contains a query descriptor and encoded candidates to score
// against it.
type RankInput struct {
	Query      *domain.MolDistHist
	Candidates []string
	// TopK limits the result; zero or less returns every candidate.
	TopK int
	// MinSimilarity drops hits scoring below it.
	MinSimilarity float64
}

// RankedHit is one scored candidate.
type RankedHit struct {
	Index      int     `json:"index"`
	Similarity float64 `json:"similarity"`
}

// CreateBatch creates descriptors for mols on up to Settings.Workers
// goroutines.  The result is index-aligned with mols; a nil entry stays nil.
// The first error cancels the remaining work.
func (h *Handler) CreateBatch(ctx context.Context, mols []*molecule.Molecule) ([]*domain.MolDistHist, error) {
	out := make([]*domain.MolDistHist, len(mols))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(h.settings.Workers)
	for i, mol := range mols {
		if mol == nil {
			continue
		}
		i, mol := i, mol
		g.Go(func() error {
			m, err := h.CreateDescriptor(gCtx, mol)
			if err != nil {
				return errors.Wrap(err, errors.CodeUnknown, "batch item").WithDetailf("index %d", i)
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := lo.CountBy(out, func(m *domain.MolDistHist) bool { return m != nil && m.IsFailed() })
	h.logger.Info("batch created",
		logging.Int("molecules", len(mols)),
		logging.Int("failed", failed))
	return out, nil
}

// Rank scores every candidate against the query and returns hits ordered by
// descending similarity, ties by candidate index.  Undecodable candidates
// score zero.
func (h *Handler) Rank(ctx context.Context, input *RankInput) ([]RankedHit, error) {
	if input == nil || input.Query == nil {
		return nil, errors.InvalidParam("rank query is required")
	}
	if input.Query.IsFailed() {
		return nil, errors.New(errors.ErrCodeDescriptorInvalid, "rank query is a failed descriptor")
	}

	hits := make([]RankedHit, len(input.Candidates))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(h.settings.Workers)
	for i, enc := range input.Candidates {
		i, enc := i, enc
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			hits[i] = RankedHit{Index: i, Similarity: h.Similarity(input.Query, h.DecodeString(enc))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits = lo.Filter(hits, func(hit RankedHit, _ int) bool { return hit.Similarity >= input.MinSimilarity })
	slices.SortStableFunc(hits, func(a, b RankedHit) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		}
		return a.Index - b.Index
	})
	if input.TopK > 0 && len(hits) > input.TopK {
		hits = hits[:input.TopK]
	}
	return hits, nil
}
