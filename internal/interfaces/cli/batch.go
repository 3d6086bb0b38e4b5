package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	domain "github.com/turtacn/flexophore/internal/domain/flexophore"
	"github.com/turtacn/flexophore/internal/domain/molecule"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexophore/pkg/errors"
)

// BatchItem is one SD record of a batch run.
type BatchItem struct {
	Index      int    `json:"index"`
	Name       string `json:"name,omitempty"`
	Descriptor string `json:"descriptor"`
	Error      string `json:"error,omitempty"`
}

// BatchResult is the output of the batch command.
type BatchResult struct {
	JobID  string      `json:"job_id"`
	Items  []BatchItem `json:"items"`
	Failed int         `json:"failed"`
}

// String renders the tab-separated form read back by the rank command.
func (r BatchResult) String() string {
	var sb strings.Builder
	for _, it := range r.Items {
		fmt.Fprintf(&sb, "%d\t%s\t%s\n", it.Index, it.Name, it.Descriptor)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (r BatchResult) TableHeaders() []string { return []string{"INDEX", "NAME", "ERROR", "DESCRIPTOR"} }

func (r BatchResult) TableRows() [][]string {
	return lo.Map(r.Items, func(it BatchItem, _ int) []string {
		return []string{strconv.Itoa(it.Index), it.Name, it.Error, it.Descriptor}
	})
}

func newBatchCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "batch [sdfile]",
		Short: "Create descriptors for every record of an SD file",
		Long: "Batch reads an SD file (or stdin) and creates descriptors in parallel.\n" +
			"Records that fail to parse or describe get the FAILED descriptor so\n" +
			"output lines stay aligned with input records.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runBatch(cmd, cliCtx, args, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write results to this file instead of stdout")
	return cmd
}

func runBatch(cmd *cobra.Command, cliCtx *CLIContext, args []string, out string) error {
	in, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer in.Close()

	jobID := uuid.NewString()
	logger := cliCtx.Logger.With(logging.String("job_id", jobID))

	var (
		mols  []*molecule.Molecule
		items []BatchItem
	)
	reader := molecule.NewSDFReader(in)
	for {
		mol, err := reader.Next()
		if err == io.EOF {
			break
		}
		item := BatchItem{Index: len(items), Descriptor: domain.FailedString}
		if err != nil {
			item.Error = err.Error()
			logger.Warn("SD record skipped", logging.Int("index", item.Index), logging.Err(err))
		} else {
			item.Name = mol.Name
		}
		items = append(items, item)
		mols = append(mols, mol)
	}
	if len(items) == 0 {
		return errors.InvalidParam("SD file contains no records")
	}

	ctx, cancel := cliCtx.withTimeout(cmd.Context())
	defer cancel()

	logger.Info("batch started", logging.Int("records", len(items)))
	descs, err := cliCtx.Service.CreateBatch(ctx, mols)
	if err != nil {
		return err
	}
	for i, m := range descs {
		if m != nil {
			items[i].Descriptor = cliCtx.Service.EncodeString(m)
		}
	}
	res := BatchResult{
		JobID:  jobID,
		Items:  items,
		Failed: lo.CountBy(items, func(it BatchItem) bool { return it.Descriptor == domain.FailedString }),
	}
	logger.Info("batch finished", logging.Int("records", len(items)), logging.Int("failed", res.Failed))

	if out == "" {
		return PrintResult(cmd, res)
	}
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "creating output file").WithDetail(out)
	}
	defer f.Close()
	cmd.SetOut(f)
	return PrintResult(cmd, res)
}
