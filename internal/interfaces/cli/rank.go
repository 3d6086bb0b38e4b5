package cli

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	app "github.com/turtacn/flexophore/internal/application/flexophore"
	"github.com/turtacn/flexophore/pkg/errors"
)

// RankRow is one hit of the rank command.
type RankRow struct {
	Rank       int     `json:"rank"`
	Index      int     `json:"index"`
	Name       string  `json:"name,omitempty"`
	Similarity float64 `json:"similarity"`
}

// RankResult is the output of the rank command.
type RankResult struct {
	Hits []RankRow `json:"hits"`
}

func (r RankResult) String() string {
	return strings.Join(lo.Map(r.Hits, func(h RankRow, _ int) string {
		return strconv.Itoa(h.Index) + "\t" + h.Name + "\t" + strconv.FormatFloat(h.Similarity, 'f', 6, 64)
	}), "\n")
}

func (r RankResult) TableHeaders() []string { return []string{"RANK", "INDEX", "NAME", "SIMILARITY"} }

func (r RankResult) TableRows() [][]string {
	return lo.Map(r.Hits, func(h RankRow, _ int) []string {
		return []string{strconv.Itoa(h.Rank), strconv.Itoa(h.Index), h.Name, strconv.FormatFloat(h.Similarity, 'f', 4, 64)}
	})
}

func newRankCmd() *cobra.Command {
	var (
		query         string
		topK          int
		minSimilarity float64
	)

	cmd := &cobra.Command{
		Use:   "rank --query DESCRIPTOR [candidates]",
		Short: "Rank candidate descriptors against a query",
		Long: "Rank reads one candidate per line, either a bare descriptor or the\n" +
			"INDEX<TAB>NAME<TAB>DESCRIPTOR lines written by batch, and prints the\n" +
			"candidates ordered by decreasing similarity to the query.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if minSimilarity < 0 || minSimilarity > 1 {
				return errors.Newf(errors.ErrCodeValidation, "min-similarity must be between 0 and 1, got %.2f", minSimilarity)
			}

			in, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()

			var names, candidates []string
			sc := bufio.NewScanner(in)
			sc.Buffer(make([]byte, 64*1024), 16<<20)
			for sc.Scan() {
				line := strings.TrimSpace(sc.Text())
				if line == "" {
					continue
				}
				fields := strings.Split(line, "\t")
				name := ""
				if len(fields) >= 3 {
					name = fields[len(fields)-2]
				}
				names = append(names, name)
				candidates = append(candidates, fields[len(fields)-1])
			}
			if err := sc.Err(); err != nil {
				return errors.Wrap(err, errors.ErrCodeBadRequest, "reading candidates")
			}

			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			hits, err := cliCtx.Service.Rank(ctx, &app.RankInput{
				Query:         cliCtx.Service.DecodeString(query),
				Candidates:    candidates,
				TopK:          topK,
				MinSimilarity: minSimilarity,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, RankResult{Hits: lo.Map(hits, func(h app.RankedHit, i int) RankRow {
				return RankRow{Rank: i + 1, Index: h.Index, Name: names[h.Index], Similarity: h.Similarity}
			})})
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "encoded query descriptor (required)")
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of hits to print (0 prints all)")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "drop hits scoring below this value")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}
