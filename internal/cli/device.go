package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/internal/tables"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/display"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/macros"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/sequence"
)

func (a *App) newDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Talk to the bot over its serial port",
		Long: `Talk to the bot over its CDC serial port.

Settings and step tables written to the device are used from its next boot.`,
	}

	cmd.AddCommand(a.deviceCommands()...)
	cmd.AddCommand(a.newShellCmd())
	return cmd
}

// deviceCommands builds the device subcommands. The shell builds a fresh set
// for every line it runs.
func (a *App) deviceCommands() []*cobra.Command {
	settings := &cobra.Command{Use: "settings", Short: "Read or write the stored settings"}
	settings.AddCommand(a.newDeviceSettingsGetCmd(), a.newDeviceSettingsSetCmd())

	tally := a.newDeviceTallyCmd()
	tally.AddCommand(a.newDeviceTallyResetCmd())

	tablesCmd := &cobra.Command{Use: "tables", Short: "Manage step table overrides stored on the device"}
	tablesCmd.AddCommand(
		a.newDeviceTablesListCmd(),
		a.newDeviceTablesGetCmd(),
		a.newDeviceTablesPushCmd(),
		a.newDeviceTablesDeleteCmd(),
	)

	return []*cobra.Command{
		a.newDevicePingCmd(),
		a.newDeviceDiscoverCmd(),
		a.newDeviceStatusCmd(),
		settings,
		tally,
		a.newDeviceVersionCmd(),
		a.newDeviceRebootCmd(),
		a.newDeviceFactoryResetCmd(),
		a.newDeviceStorageCmd(),
		tablesCmd,
	}
}

func (a *App) newDevicePingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping [text]",
		Short: "Check the device echoes a payload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.device()
			if err != nil {
				return err
			}
			payload := "ping"
			if len(args) == 1 {
				payload = args[0]
			}
			rtt, err := c.Ping(cmd.Context(), []byte(payload))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "pong in %s\n", rtt)
			return nil
		},
	}
}

func (a *App) newDeviceDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Print the device identification",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.device()
			if err != nil {
				return err
			}
			name, err := c.Discover(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, name)
			return nil
		},
	}
}

func (a *App) newDeviceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what the running engine is doing",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.device()
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}

			state, counters, progress := display.FormatStatus(&st)
			w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintf(w, "State:\t%s\n", state)
			fmt.Fprintf(w, "Counters:\t%s\n", counters)
			fmt.Fprintf(w, "Progress:\t%s\n", progress)
			fmt.Fprintf(w, "Ticks:\t%d\n", st.Ticks)
			fmt.Fprintf(w, "Collections:\t%d\n", st.Collected)
			fmt.Fprintf(w, "Boxes done:\t%d\n", st.BoxesDone)
			return w.Flush()
		},
	}
}

func (a *App) newDeviceSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the settings stored on the device",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.device()
			if err != nil {
				return err
			}
			s, err := c.Settings(cmd.Context())
			if err != nil {
				return err
			}
			return a.printSettings(s)
		},
	}
}

func (a *App) newDeviceSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Store the resolved run settings on the device",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			c, err := a.device()
			if err != nil {
				return err
			}
			if err := c.SetSettings(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "settings stored, used from the next boot")
			return nil
		},
	}
}

func (a *App) newDeviceTallyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tally",
		Short: "Show lifetime run counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.device()
			if err != nil {
				return err
			}
			t, err := c.Tally(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintf(w, "Runs:\t%d\n", t.Runs)
			fmt.Fprintf(w, "Boxes:\t%d\n", t.Boxes)
			fmt.Fprintf(w, "Eggs:\t%d\n", t.Eggs)
			return w.Flush()
		},
	}
}

func (a *App) newDeviceTallyResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Zero the lifetime run counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.device()
			if err != nil {
				return err
			}
			if err := c.ResetTally(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "tally reset")
			return nil
		},
	}
}

func (a *App) newDeviceVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the firmware version",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.device()
			if err != nil {
				return err
			}
			v, err := c.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "firmware %s\n", v)
			return nil
		},
	}
}

func (a *App) newDeviceRebootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reboot",
		Short: "Restart the device, applying stored settings and tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.device()
			if err != nil {
				return err
			}
			if err := c.Reboot(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "rebooting")
			return nil
		},
	}
}

func (a *App) newDeviceFactoryResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "factory-reset",
		Short: "Erase stored settings, tally and step tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("factory reset erases everything stored on the device; pass --yes to confirm")
			}
			c, err := a.device()
			if err != nil {
				return err
			}
			if err := c.FactoryReset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "device storage erased")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func (a *App) newDeviceStorageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "storage",
		Short: "Show flash usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.device()
			if err != nil {
				return err
			}
			stats, err := c.StorageStats(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintf(w, "Total:\t%d\n", stats.TotalSpace)
			fmt.Fprintf(w, "Used:\t%d\n", stats.UsedSpace)
			fmt.Fprintf(w, "Free:\t%d\n", stats.FreeSpace)
			fmt.Fprintf(w, "Tables:\t%d\n", stats.TableCount)
			return w.Flush()
		},
	}
}

// tableIndex accepts a table name or its position in the library.
func tableIndex(arg string) (uint8, string, error) {
	lib := macros.Builtin()
	if n, err := strconv.Atoi(arg); err == nil {
		s, err := lib.At(n)
		if err != nil {
			return 0, "", fmt.Errorf("table %d: %w", n, err)
		}
		return uint8(n), s.Name, nil
	}
	n, err := lib.Index(arg)
	if err != nil {
		return 0, "", fmt.Errorf("table %q: %w", arg, err)
	}
	return uint8(n), arg, nil
}

func (a *App) newDeviceTablesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tables with a stored override",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.device()
			if err != nil {
				return err
			}
			indexes, err := c.ListTables(cmd.Context())
			if err != nil {
				return err
			}

			lib := macros.Builtin()
			w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tNAME")
			for _, i := range indexes {
				name := "?"
				if s, err := lib.At(int(i)); err == nil {
					name = s.Name
				}
				fmt.Fprintf(w, "%d\t%s\n", i, name)
			}
			return w.Flush()
		},
	}
}

func (a *App) newDeviceTablesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name|index>",
		Short: "Print a stored override as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, name, err := tableIndex(args[0])
			if err != nil {
				return err
			}
			c, err := a.device()
			if err != nil {
				return err
			}
			steps, err := c.Table(cmd.Context(), idx)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			doc := tables.File{Sequences: []sequence.Sequence{{Name: name, Steps: steps}}}
			if err := enc.Encode(&doc); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func (a *App) newDeviceTablesPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push [dir]",
		Short: "Store every override from a tables directory on the device",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.TablesDir
			if len(args) == 1 {
				dir = args[0]
			}
			seqs, err := tables.LoadDir(dir)
			if err != nil {
				return err
			}
			if len(seqs) == 0 {
				return fmt.Errorf("no step tables found in %q", dir)
			}

			c, err := a.device()
			if err != nil {
				return err
			}
			lib := macros.Builtin()
			for _, s := range seqs {
				idx, err := lib.Index(s.Name)
				if err != nil {
					return err
				}
				if err := c.SetTable(cmd.Context(), uint8(idx), s.Steps); err != nil {
					return fmt.Errorf("push %s: %w", s.Name, err)
				}
				a.logger.Info().Str("table", s.Name).Int("index", idx).Int("steps", len(s.Steps)).Msg("table stored")
			}
			fmt.Fprintf(a.stdout, "%d table(s) stored, used from the next boot\n", len(seqs))
			return nil
		},
	}
}

func (a *App) newDeviceTablesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name|index>",
		Short: "Drop a stored override, restoring the builtin table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, name, err := tableIndex(args[0])
			if err != nil {
				return err
			}
			c, err := a.device()
			if err != nil {
				return err
			}
			if err := c.DeleteTable(cmd.Context(), idx); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s override deleted\n", name)
			return nil
		},
	}
}
