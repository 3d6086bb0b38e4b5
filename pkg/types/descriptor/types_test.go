package descriptor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/flexophore/pkg/errors"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  interface{ Validate() error }
		ok   bool
	}{
		{"create empty", &CreateDescriptorRequest{Molfile: "  \n"}, false},
		{"create", &CreateDescriptorRequest{Molfile: "x"}, true},
		{"batch empty", &BatchRequest{}, false},
		{"similarity missing base", &SimilarityRequest{Query: "a"}, false},
		{"similarity", &SimilarityRequest{Query: "a", Base: FailedDescriptor}, true},
		{"rank no query", &RankRequest{}, false},
		{"rank bad threshold", &RankRequest{Query: "a", MinSimilarity: 1.5}, false},
		{"rank", &RankRequest{Query: "a", TopK: 3, MinSimilarity: 0.2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsCode(err, errors.CodeInvalidParam), "got %v", err)
		})
	}
}

func TestBatchItem_FlattensDescriptor(t *testing.T) {
	b, err := json.Marshal(BatchItem{Index: 2, DescriptorResponse: DescriptorResponse{Descriptor: FailedDescriptor, Failed: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"index":2,"descriptor":"FAILED","failed":true}`, string(b))
}
