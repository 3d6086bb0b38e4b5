package cli

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/turtacn/flexophore/internal/domain/matching"
)

// SimilarityResult is the output of the similarity command.
type SimilarityResult struct {
	Similarity float64  `json:"similarity"`
	Raw        float64  `json:"raw"`
	Pairs      [][2]int `json:"pairs,omitempty"`

	pairs []matching.NodePair
}

func (r SimilarityResult) String() string { return strconv.FormatFloat(r.Similarity, 'f', 6, 64) }

func (r SimilarityResult) TableHeaders() []string { return []string{"QUERY_NODE", "BASE_NODE"} }

func (r SimilarityResult) TableRows() [][]string {
	return lo.Map(r.pairs, func(p matching.NodePair, _ int) []string {
		return []string{strconv.Itoa(p.Query), strconv.Itoa(p.Base)}
	})
}

func newSimilarityCmd() *cobra.Command {
	var align bool

	cmd := &cobra.Command{
		Use:   "similarity QUERY BASE",
		Short: "Compare two encoded descriptors",
		Long: "Similarity decodes two descriptors and prints their score in [0, 1].\n" +
			"Undecodable or FAILED descriptors score 0.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			svc := cliCtx.Service
			a := svc.Match(svc.DecodeString(args[0]), svc.DecodeString(args[1]))

			res := SimilarityResult{Similarity: a.Similarity, Raw: a.Raw}
			if align {
				res.pairs = a.Pairs
				res.Pairs = lo.Map(a.Pairs, func(p matching.NodePair, _ int) [2]int { return [2]int{p.Query, p.Base} })
				if cliCtx.OutputFormat == "text" {
					for _, p := range a.Pairs {
						fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", p.Query, p.Base)
					}
				}
			}
			return PrintResult(cmd, res)
		},
	}
	cmd.Flags().BoolVar(&align, "align", false, "also print the node correspondence")
	return cmd
}
