package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/internal/tables"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/macros"
)

func (a *App) newTablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect and validate step tables",
	}
	cmd.AddCommand(a.newTablesDumpCmd(), a.newTablesCheckCmd())
	return cmd
}

func (a *App) newTablesDumpCmd() *cobra.Command {
	var output string
	var builtin bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the step tables as YAML",
		Long: `Write every step table as YAML. Without --builtin the overrides from
tables_dir are applied first, so the output is what a run would use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := macros.Builtin()
			if !builtin {
				var err error
				if lib, err = tables.Load(a.cfg.TablesDir); err != nil {
					return err
				}
			}

			if output == "" {
				return tables.Dump(a.stdout, lib)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := tables.Dump(f, lib); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&builtin, "builtin", false, "Ignore tables_dir overrides")
	return cmd
}

func (a *App) newTablesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [dir]",
		Short: "Validate a directory of step table overrides",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.TablesDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no tables directory given and tables_dir is not set")
			}

			seqs, err := tables.LoadDir(dir)
			if err != nil {
				return err
			}

			ref := macros.Builtin()
			w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tNAME\tSTEPS\tTICKS\tBUILTIN")
			for _, s := range seqs {
				idx, _ := ref.Index(s.Name)
				orig, _ := ref.Lookup(s.Name)
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", idx, s.Name, len(s.Steps), s.Ticks(), orig.Ticks())
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "%d override(s) OK\n", len(seqs))
			return nil
		},
	}
}
