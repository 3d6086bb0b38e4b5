package flexophore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gonum.org/v1/gonum/spatial/r3"

	domain "github.com/turtacn/flexophore/internal/domain/flexophore"
	"github.com/turtacn/flexophore/internal/domain/molecule"
	"github.com/turtacn/flexophore/internal/domain/pharmacophore"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/flexophore/pkg/errors"
)

// CreateDescriptor computes the descriptor of mol.  Molecules that cannot be
// described (too small, too large, too many nodes, no convergent ensemble)
// yield domain.FailedObject and a nil error.  An error is returned only for
// a nil molecule, a cancelled context or an internal invariant violation.
func (h *Handler) CreateDescriptor(ctx context.Context, mol *molecule.Molecule) (*domain.MolDistHist, error) {
	if mol == nil {
		return nil, errors.InvalidParam("molecule is nil")
	}
	work, err := mol.StripHydrogens()
	if err != nil {
		return nil, err
	}
	if h.cache == nil {
		return h.create(ctx, work)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The shared creation runs detached from every caller; each caller stops
	// waiting when its own context ends.
	key := h.cacheKey(work)
	ch := h.inflight.DoChan(key, func() (interface{}, error) {
		return h.createCached(context.WithoutCancel(ctx), key, work)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.MolDistHist), nil
	}
}

// cacheKey identifies a structure under the parameters that shape its
// descriptor.
func (h *Handler) cacheKey(work *molecule.Molecule) string {
	return fmt.Sprintf("%016x:t%d:c%d:s%d:n%d",
		work.Key(), h.table.Version(), h.settings.Conformers, h.settings.Seed, h.settings.MaxNodes)
}

func (h *Handler) createCached(ctx context.Context, key string, work *molecule.Molecule) (*domain.MolDistHist, error) {
	log := h.logger.With(logging.String("cache_key", key))
	payload, err := h.cache.Get(ctx, key)
	switch {
	case err == nil:
		if bytes.Equal(payload, domain.FailedBytes) {
			h.metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			h.metrics.DescriptorsTotal.WithLabelValues(prometheus.StatusCached).Inc()
			return domain.FailedObject, nil
		}
		if m, derr := h.codec.DecodeStrict(payload); derr == nil && m.TableVersion() == h.table.Version() {
			h.metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			h.metrics.DescriptorsTotal.WithLabelValues(prometheus.StatusCached).Inc()
			return m, nil
		}
		log.Warn("discarding unreadable cache entry")
		h.metrics.CacheRequestsTotal.WithLabelValues("corrupt").Inc()
		if err := h.cache.Delete(ctx, key); err != nil {
			log.Warn("descriptor cache eviction failed", logging.Err(err))
		}
	case errors.IsNotFound(err):
		h.metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	default:
		log.Warn("descriptor cache lookup failed", logging.Err(err))
		h.metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
	}

	m, err := h.create(ctx, work)
	if err != nil {
		return nil, err
	}
	if err := h.cache.Set(ctx, key, h.codec.Encode(m)); err != nil {
		log.Warn("descriptor cache store failed", logging.Err(err))
	}
	return m, nil
}

// create runs the pipeline on a hydrogen-free molecule.
func (h *Handler) create(ctx context.Context, work *molecule.Molecule) (*domain.MolDistHist, error) {
	start := time.Now()
	log := h.logger.With(logging.MoleculeKey(work.Key()), logging.String("molecule", work.Name))

	heavy := work.AtomCount()
	if heavy < h.settings.MinHeavyAtoms {
		return h.failed(log, start, errors.Newf(errors.ErrCodeMoleculeTooSmall,
			"%d heavy atoms, minimum is %d", heavy, h.settings.MinHeavyAtoms)), nil
	}
	if heavy > h.settings.MaxHeavyAtoms {
		return h.failed(log, start, errors.Newf(errors.ErrCodeMoleculeTooLarge,
			"%d heavy atoms, maximum is %d", heavy, h.settings.MaxHeavyAtoms)), nil
	}

	reducer := pharmacophore.NewReducer(work, h.classifier, h.policy)
	nodes := reducer.NodeCount()
	if nodes == 0 {
		return h.failed(log, start, errors.New(errors.ErrCodeDescriptorInvalid, "molecule has no pharmacophore centers")), nil
	}
	if nodes > h.settings.MaxNodes {
		return h.failed(log, start, errors.Newf(errors.ErrCodeTooManyNodes,
			"%d nodes, maximum is %d", nodes, h.settings.MaxNodes)), nil
	}

	conf := work.Clone()
	var (
		result   *domain.MolDistHist
		attempts int
		oneConf  int
	)
	seed := h.settings.Seed
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempts++
		if attempts > 1 {
			seed = h.now().UnixNano()
		}
		m, err := h.attempt(work, conf, reducer, seed)
		switch {
		case err == nil:
			result = m
			h.metrics.ConformerAttemptsTotal.WithLabelValues(prometheus.OutcomeSuccess).Inc()
			return nil
		case errors.IsCode(err, errors.ErrCodeDegenerateEnsemble):
			h.metrics.ConformerAttemptsTotal.WithLabelValues(prometheus.OutcomeOneConf).Inc()
			oneConf++
			if oneConf >= h.settings.MaxTriesOneConf {
				return backoff.Permanent(errors.Wrap(err, errors.ErrCodeRetriesExhausted, "single conformer on every attempt").
					WithDetailf("%d attempts", oneConf))
			}
			return err
		case retryable(err):
			h.metrics.ConformerAttemptsTotal.WithLabelValues(prometheus.OutcomeRetry).Inc()
			return err
		default:
			h.metrics.ConformerAttemptsTotal.WithLabelValues(prometheus.OutcomePermanent).Inc()
			return backoff.Permanent(err)
		}
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(h.settings.MaxTries-1)), ctx)
	notify := func(err error, _ time.Duration) {
		log.Debug("retrying descriptor attempt", logging.Attempt(attempts), logging.Err(err))
	}

	err := backoff.RetryNotify(op, policy, notify)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		h.observe(prometheus.StatusError, start)
		return nil, err
	case errors.IsCode(err, errors.ErrCodeInvariantViolation):
		log.Error("descriptor invariant violated", logging.Err(err), logging.Attempt(attempts))
		h.observe(prometheus.StatusError, start)
		return nil, err
	default:
		if retryable(err) && !errors.IsCode(err, errors.ErrCodeRetriesExhausted) {
			err = errors.Wrap(err, errors.ErrCodeRetriesExhausted, "no usable conformer ensemble").
				WithDetailf("%d attempts", attempts)
		}
		return h.failed(log.With(logging.Attempt(attempts)), start, err), nil
	}

	h.observe(prometheus.StatusCreated, start)
	h.metrics.NodesPerDescriptor.WithLabelValues().Observe(float64(result.NumNodes()))
	if v := result.Visualization(); v != nil {
		h.metrics.ConformersPerDescriptor.WithLabelValues().Observe(float64(v.Conformers))
	}
	log.Debug("descriptor created", logging.Nodes(result.NumNodes()), logging.Attempt(attempts))
	return result, nil
}

// attempt generates one ensemble from the input geometry of work and folds
// every conformer, placed on conf, into a descriptor.
func (h *Handler) attempt(work, conf *molecule.Molecule, reducer *pharmacophore.Reducer, seed int64) (*domain.MolDistHist, error) {
	ens, err := h.generator.Generate(work, h.settings.Conformers, seed)
	if err != nil {
		return nil, err
	}
	if ens.OnlyOneConformer {
		return nil, errors.Newf(errors.ErrCodeDegenerateEnsemble,
			"one conformer produced out of %d possible", ens.Possible)
	}

	var agg *domain.Aggregator
	for i, pos := range ens.Conformers {
		if err := conf.SetPositions(pos); err != nil {
			return nil, err
		}
		set := reducer.Reduce(conf)
		g, err := pharmacophore.BuildGraph(set)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			if err := agg.Add(g); err != nil {
				return nil, err
			}
			continue
		}
		if agg, err = domain.NewAggregator(g, h.table.Version()); err != nil {
			return nil, err
		}
		viz := &domain.Visualization{Positions: make([]r3.Vec, len(set.Centers)), Conformers: ens.Len()}
		for k, c := range set.Centers {
			viz.Positions[k] = c.Position
		}
		agg.SetVisualization(viz)
	}
	return agg.Build()
}

// retryable lists the failures a fresh seed can cure.
func retryable(err error) bool {
	return errors.IsAnyCode(err,
		errors.ErrCodeConformationGenerationFailed,
		errors.ErrCodeDistanceOutOfRange,
		errors.ErrCodeDegenerateEnsemble,
	)
}

func (h *Handler) failed(log logging.Logger, start time.Time, reason error) *domain.MolDistHist {
	log.Warn("descriptor creation failed", logging.String("code", errors.GetCode(reason).String()), logging.Err(reason))
	h.observe(prometheus.StatusFailed, start)
	return domain.FailedObject
}

func (h *Handler) observe(status string, start time.Time) {
	h.metrics.DescriptorsTotal.WithLabelValues(status).Inc()
	h.metrics.DescriptorDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
}
