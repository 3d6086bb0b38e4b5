// Package descriptor holds the wire types of the descriptor HTTP API.  They
// are shared by the server handlers and the Go client.
package descriptor

import (
	"strings"

	"github.com/turtacn/flexophore/pkg/errors"
)

// FailedDescriptor is the encoded form of a molecule that could not be
// described.  It compares with similarity 0 to everything.
const FailedDescriptor = "FAILED"

// CreateDescriptorRequest is the body of POST /api/v1/descriptors.
type CreateDescriptorRequest struct {
	Molfile string `json:"molfile"`
}

func (r *CreateDescriptorRequest) Validate() error {
	if strings.TrimSpace(r.Molfile) == "" {
		return errors.InvalidParam("molfile is required")
	}
	return nil
}

// NodeView is one pharmacophore node of a created descriptor.
type NodeView struct {
	AtomIndex int      `json:"atom_index"`
	Types     []string `json:"types"`
}

// DescriptorResponse describes one created descriptor.  Descriptor is the
// base64 encoding accepted by the similarity and rank endpoints.
type DescriptorResponse struct {
	Name         string     `json:"name,omitempty"`
	Descriptor   string     `json:"descriptor"`
	Failed       bool       `json:"failed"`
	TableVersion int        `json:"table_version,omitempty"`
	Nodes        []NodeView `json:"nodes,omitempty"`
	Conformers   int        `json:"conformers,omitempty"`
}

// BatchRequest is the body of POST /api/v1/descriptors/batch.
type BatchRequest struct {
	SDF string `json:"sdf"`
}

func (r *BatchRequest) Validate() error {
	if strings.TrimSpace(r.SDF) == "" {
		return errors.InvalidParam("sdf is required")
	}
	return nil
}

// BatchItem is the result for one SD record.  Error is set when the record
// could not be parsed.
type BatchItem struct {
	Index int    `json:"index"`
	Error string `json:"error,omitempty"`
	DescriptorResponse
}

type BatchResponse struct {
	Items  []BatchItem `json:"items"`
	Failed int         `json:"failed"`
}

// SimilarityRequest is the body of POST /api/v1/similarity.
type SimilarityRequest struct {
	Query string `json:"query"`
	Base  string `json:"base"`
}

func (r *SimilarityRequest) Validate() error {
	if r.Query == "" || r.Base == "" {
		return errors.InvalidParam("query and base descriptors are required")
	}
	return nil
}

// PairView maps a query node onto a base node.
type PairView struct {
	Query int `json:"query"`
	Base  int `json:"base"`
}

type SimilarityResponse struct {
	Similarity float64    `json:"similarity"`
	Raw        float64    `json:"raw"`
	Pairs      []PairView `json:"pairs"`
}

// RankRequest is the body of POST /api/v1/rank.  TopK <= 0 returns every
// candidate.
type RankRequest struct {
	Query         string   `json:"query"`
	Candidates    []string `json:"candidates"`
	TopK          int      `json:"top_k"`
	MinSimilarity float64  `json:"min_similarity"`
}

func (r *RankRequest) Validate() error {
	if r.Query == "" {
		return errors.InvalidParam("query descriptor is required")
	}
	if r.MinSimilarity < 0 || r.MinSimilarity > 1 {
		return errors.InvalidParam("min_similarity must be in [0, 1]")
	}
	return nil
}

// RankedHit is one candidate, identified by its position in the request.
type RankedHit struct {
	Index      int     `json:"index"`
	Similarity float64 `json:"similarity"`
}

type RankResponse struct {
	Hits []RankedHit `json:"hits"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
