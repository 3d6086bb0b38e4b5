package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/turtacn/flexophore/internal/domain/interaction"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No config or service is needed to print the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "flexo %s\n", Version)
			fmt.Fprintf(out, "  commit:              %s\n", GitCommit)
			fmt.Fprintf(out, "  built:               %s\n", BuildDate)
			fmt.Fprintf(out, "  go:                  %s\n", runtime.Version())
			fmt.Fprintf(out, "  interaction table:   v%d\n", interaction.DefaultTable().Version())
			return nil
		},
	}
}
