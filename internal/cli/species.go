package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
)

func (a *App) newSpeciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "species [dex...]",
		Short: "Show hatch steps and circling time per species",
		Long: `Show hatch steps and the circling threshold in ticks, with and without
Flame Body. Without arguments every known species is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dex := config.KnownSpecies()
			if len(args) > 0 {
				dex = make([]uint16, 0, len(args))
				for _, arg := range args {
					n, err := strconv.ParseUint(arg, 10, 16)
					if err != nil || n == 0 {
						return fmt.Errorf("invalid dex number %q", arg)
					}
					dex = append(dex, uint16(n))
				}
			}

			w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "DEX\tSTEPS\tTICKS\tFLAME BODY")
			for _, n := range dex {
				steps := "unknown"
				if s, ok := config.EggSteps(n); ok {
					steps = strconv.Itoa(int(s))
				}
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", n, steps,
					engine.BreedingDuration(n, false), engine.BreedingDuration(n, true))
			}
			return w.Flush()
		},
	}
}
