package client

import (
	"context"

	api "github.com/turtacn/flexophore/pkg/types/descriptor"
)

// CreateDescriptor creates the descriptor of a V2000 molfile.  A molecule
// that cannot be described comes back with Failed set, not as an error.
func (c *Client) CreateDescriptor(ctx context.Context, molfile string) (*api.DescriptorResponse, error) {
	req := &api.CreateDescriptorRequest{Molfile: molfile}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp api.DescriptorResponse
	if err := c.post(ctx, "/api/v1/descriptors", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateBatch creates descriptors for every record of an SD file.
func (c *Client) CreateBatch(ctx context.Context, sdf string) (*api.BatchResponse, error) {
	req := &api.BatchRequest{SDF: sdf}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp api.BatchResponse
	if err := c.post(ctx, "/api/v1/descriptors/batch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Similarity compares two encoded descriptors.
func (c *Client) Similarity(ctx context.Context, query, base string) (*api.SimilarityResponse, error) {
	req := &api.SimilarityRequest{Query: query, Base: base}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp api.SimilarityResponse
	if err := c.post(ctx, "/api/v1/similarity", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Rank orders req.Candidates by decreasing similarity to req.Query.
func (c *Client) Rank(ctx context.Context, req *api.RankRequest) ([]api.RankedHit, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp api.RankResponse
	if err := c.post(ctx, "/api/v1/rank", req, &resp); err != nil {
		return nil, err
	}
	return resp.Hits, nil
}

// Ready reports nil when the server's readiness probe passes.
func (c *Client) Ready(ctx context.Context) error {
	return c.get(ctx, "/readyz", nil)
}
