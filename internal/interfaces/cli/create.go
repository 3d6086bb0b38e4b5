package cli

import (
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/flexophore/internal/domain/molecule"
	"github.com/turtacn/flexophore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flexophore/pkg/errors"
)

// DescriptorResult is the output of the create command.
type DescriptorResult struct {
	Name         string `json:"name,omitempty"`
	Descriptor   string `json:"descriptor"`
	Failed       bool   `json:"failed"`
	Nodes        int    `json:"nodes"`
	TableVersion int    `json:"table_version,omitempty"`
}

func (r DescriptorResult) String() string { return r.Descriptor }

func (r DescriptorResult) TableHeaders() []string {
	return []string{"NAME", "NODES", "FAILED", "DESCRIPTOR"}
}

func (r DescriptorResult) TableRows() [][]string {
	return [][]string{{r.Name, strconv.Itoa(r.Nodes), strconv.FormatBool(r.Failed), r.Descriptor}}
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [molfile]",
		Short: "Create a descriptor from a V2000 molfile",
		Long: "Create reads a single molfile (from the given path, or stdin when the\n" +
			"path is omitted or \"-\") and prints its encoded descriptor.  A molecule\n" +
			"that cannot be described yields the FAILED descriptor, not an error.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runCreate(cmd, cliCtx, args)
		},
	}
}

func runCreate(cmd *cobra.Command, cliCtx *CLIContext, args []string) error {
	text, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	mol, err := molecule.ParseMolfile(string(text))
	if err != nil {
		return err
	}

	ctx, cancel := cliCtx.withTimeout(cmd.Context())
	defer cancel()

	m, err := cliCtx.Service.CreateDescriptor(ctx, mol)
	if err != nil {
		return err
	}
	cliCtx.Logger.Debug("descriptor created",
		logging.String("name", mol.Name),
		logging.Nodes(m.NumNodes()),
		logging.Bool("failed", m.IsFailed()))

	return PrintResult(cmd, DescriptorResult{
		Name:         mol.Name,
		Descriptor:   cliCtx.Service.EncodeString(m),
		Failed:       m.IsFailed(),
		Nodes:        m.NumNodes(),
		TableVersion: m.TableVersion(),
	})
}

// readInput returns the contents of args[0], or stdin when no path or "-" is
// given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "reading stdin")
		}
		return b, nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "reading input file").WithDetail(args[0])
	}
	return b, nil
}

// openInput is readInput for streaming consumers.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "opening input file").WithDetail(args[0])
	}
	return f, nil
}
