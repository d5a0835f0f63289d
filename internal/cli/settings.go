package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
)

func (a *App) newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or encode the run settings",
	}
	cmd.AddCommand(a.newSettingsShowCmd(), a.newSettingsEncodeCmd())
	return cmd
}

// settings resolves the run settings, warning when the species has no egg
// cycle data and the hatch circle falls back to the default duration.
func (a *App) settings() (config.Settings, error) {
	s, err := a.cfg.Settings()
	if err != nil {
		return s, err
	}
	if _, ok := config.EggSteps(s.Species); !ok {
		a.logger.Warn().
			Uint16("species", s.Species).
			Int("breeding_duration", engine.DefaultBreedingDuration).
			Msg("no egg cycle data for species, hatch circle may end before eggs hatch")
	}
	return s, nil
}

func (a *App) newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved run settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			return a.printSettings(s)
		},
	}
}

func (a *App) printSettings(s config.Settings) error {
	w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%d\n", s.Version)
	fmt.Fprintf(w, "Species:\t%d\n", s.Species)
	fmt.Fprintf(w, "Flame body:\t%t\n", s.FlameBody())
	fmt.Fprintf(w, "Initial egg checks:\t%d\n", s.InitialEggChecks)
	fmt.Fprintf(w, "Subsequent egg checks:\t%d\n", s.SubsequentEggChecks)
	fmt.Fprintf(w, "Boxes:\t%d\n", s.Boxes)
	fmt.Fprintf(w, "Save policy:\t%s\n", s.SavePolicy)
	return w.Flush()
}

func (a *App) newSettingsEncodeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode the run settings as the device stores them",
		Long: `Encode the resolved run settings into the 10-byte record the firmware
keeps at /config/settings.bin. Without -o the bytes are printed as hex.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			data, err := s.MarshalBinary()
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Fprintln(a.stdout, hex.EncodeToString(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.logger.Info().Str("file", output).Int("bytes", len(data)).Msg("settings written")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the raw record to this file")
	return cmd
}
