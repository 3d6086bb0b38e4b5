package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/samber/lo"

	app "github.com/turtacn/flexophore/internal/application/flexophore"
	domain "github.com/turtacn/flexophore/internal/domain/flexophore"
	"github.com/turtacn/flexophore/internal/domain/interaction"
	"github.com/turtacn/flexophore/internal/domain/matching"
	"github.com/turtacn/flexophore/internal/domain/molecule"
	"github.com/turtacn/flexophore/internal/domain/pharmacophore"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexophore/pkg/errors"
	api "github.com/turtacn/flexophore/pkg/types/descriptor"
)

const defaultMaxBody = 8 << 20

// DescriptorHandler exposes descriptor creation, comparison and ranking.
type DescriptorHandler struct {
	svc     app.Service
	logger  logging.Logger
	maxBody int64
}

func NewDescriptorHandler(svc app.Service, logger logging.Logger, maxBody int64) *DescriptorHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &DescriptorHandler{svc: svc, logger: logger.Named("descriptor_handler"), maxBody: maxBody}
}

// Create handles POST /api/v1/descriptors.
func (h *DescriptorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req api.CreateDescriptorRequest
	if err := h.decode(w, r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	mol, err := molecule.ParseMolfile(req.Molfile)
	if err != nil {
		writeAppError(w, err)
		return
	}
	m, err := h.svc.CreateDescriptor(r.Context(), mol)
	if err != nil {
		h.logger.Error("descriptor creation error", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(mol.Name, m))
}

// Batch handles POST /api/v1/descriptors/batch with an SD file body.
// Unparseable records are reported per item.
func (h *DescriptorHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req api.BatchRequest
	if err := h.decode(w, r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	var (
		mols  []*molecule.Molecule
		items []api.BatchItem
	)
	reader := molecule.NewSDFReader(strings.NewReader(req.SDF))
	for {
		mol, err := reader.Next()
		if err == io.EOF {
			break
		}
		item := api.BatchItem{Index: len(items)}
		if err != nil {
			item.Error = err.Error()
			item.Descriptor = api.FailedDescriptor
			item.Failed = true
		}
		items = append(items, item)
		mols = append(mols, mol)
	}
	if len(items) == 0 {
		writeAppError(w, errors.InvalidParam("sdf contains no records"))
		return
	}

	descs, err := h.svc.CreateBatch(r.Context(), mols)
	if err != nil {
		h.logger.Error("batch creation error", logging.Err(err))
		writeAppError(w, err)
		return
	}
	for i, m := range descs {
		if m == nil {
			continue
		}
		items[i].DescriptorResponse = h.view(mols[i].Name, m)
	}
	writeJSON(w, http.StatusOK, api.BatchResponse{
		Items:  items,
		Failed: lo.CountBy(items, func(it api.BatchItem) bool { return it.Failed }),
	})
}

// Similarity handles POST /api/v1/similarity.
func (h *DescriptorHandler) Similarity(w http.ResponseWriter, r *http.Request) {
	var req api.SimilarityRequest
	if err := h.decode(w, r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	a := h.svc.Match(h.svc.DecodeString(req.Query), h.svc.DecodeString(req.Base))
	writeJSON(w, http.StatusOK, api.SimilarityResponse{
		Similarity: a.Similarity,
		Raw:        a.Raw,
		Pairs: lo.Map(a.Pairs, func(p matching.NodePair, _ int) api.PairView {
			return api.PairView{Query: p.Query, Base: p.Base}
		}),
	})
}

// Rank handles POST /api/v1/rank.
func (h *DescriptorHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req api.RankRequest
	if err := h.decode(w, r, &req); err != nil {
		writeAppError(w, err)
		return
	}
	hits, err := h.svc.Rank(r.Context(), &app.RankInput{
		Query:         h.svc.DecodeString(req.Query),
		Candidates:    req.Candidates,
		TopK:          req.TopK,
		MinSimilarity: req.MinSimilarity,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.RankResponse{
		Hits: lo.Map(hits, func(hit app.RankedHit, _ int) api.RankedHit {
			return api.RankedHit{Index: hit.Index, Similarity: hit.Similarity}
		}),
	})
}

// decode reads and validates a request body.
func (h *DescriptorHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{ Validate() error }) error {
	if err := decodeJSON(w, r, h.maxBody, dst); err != nil {
		return err
	}
	return dst.Validate()
}

func (h *DescriptorHandler) view(name string, m *domain.MolDistHist) api.DescriptorResponse {
	resp := api.DescriptorResponse{Name: name, Descriptor: h.svc.EncodeString(m), Failed: m.IsFailed()}
	if m.IsFailed() {
		return resp
	}
	resp.TableVersion = m.TableVersion()
	resp.Nodes = lo.Map(m.Nodes(), func(n pharmacophore.Node, _ int) api.NodeView {
		return api.NodeView{
			AtomIndex: n.AtomIndex,
			Types:     lo.Map(n.Types, func(c interaction.ClassID, _ int) string { return c.String() }),
		}
	})
	if v := m.Visualization(); v != nil {
		resp.Conformers = v.Conformers
	}
	return resp
}
