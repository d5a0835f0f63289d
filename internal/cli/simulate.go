package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/internal/sim"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/internal/tables"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/engine"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/macros"
)

type simulateOptions struct {
	maxFrames int
	tracePath string
}

// newMachine builds an engine from the resolved settings and table overrides.
func (a *App) newMachine() (*engine.Machine, *macros.Library, error) {
	settings, err := a.settings()
	if err != nil {
		return nil, nil, err
	}
	lib, err := tables.Load(a.cfg.TablesDir)
	if err != nil {
		return nil, nil, err
	}
	if changed := tables.Diff(lib); len(changed) > 0 {
		a.logger.Info().Strs("tables", changed).Msg("using step table overrides")
	}
	return engine.New(settings, lib), lib, nil
}

func (a *App) newSimulateCmd() *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the engine headless and report how long a run takes",
		Long: `Run the breeding engine without hardware until it is done.

Reports are pulled through the same echo buffer the firmware uses, one per
host poll, and the wall time is estimated at the configured interval.

Examples:
  eggctl simulate --species 848 --boxes 2
  eggctl simulate --trace run.bin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.simulate(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.maxFrames, "max-frames", sim.DefaultMaxFrames, "Stop after this many reports")
	cmd.Flags().StringVar(&opts.tracePath, "trace", "", "Write every 8-byte report to this file")

	return cmd
}

func (a *App) simulate(cmd *cobra.Command, opts *simulateOptions) error {
	m, _, err := a.newMachine()
	if err != nil {
		return err
	}

	simOpts := sim.Options{
		MaxFrames: opts.maxFrames,
		Interval:  a.cfg.Gadget.Interval,
		Logger:    a.logger,
	}
	if opts.tracePath != "" {
		f, err := os.Create(opts.tracePath)
		if err != nil {
			return fmt.Errorf("create trace: %w", err)
		}
		defer f.Close()
		simOpts.Trace = f
	}

	res, err := sim.Run(cmd.Context(), m, simOpts)
	if err != nil && !errors.Is(err, sim.ErrFrameLimit) {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "Done:\t%t\n", res.Done)
	fmt.Fprintf(w, "Frames:\t%d\n", res.Frames)
	fmt.Fprintf(w, "Ticks:\t%d\n", res.Ticks)
	fmt.Fprintf(w, "Estimated:\t%s\n", res.Estimated.Round(time.Second))
	fmt.Fprintf(w, "Breeding duration:\t%d\n", res.Status.BreedingDuration)
	fmt.Fprintf(w, "Collections:\t%d\n", res.Status.Collected)
	fmt.Fprintf(w, "Boxes:\t%d\n", res.Status.BoxesDone)
	fmt.Fprintf(w, "Transitions:\t%d\n", res.Transitions)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STATE\tTICKS")
	for _, s := range engine.States() {
		if n := res.StateTicks[s]; n > 0 {
			fmt.Fprintf(w, "%s\t%d\n", s, n)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !res.Done {
		return fmt.Errorf("stopped in %s: %w", res.Status.State, sim.ErrFrameLimit)
	}
	return nil
}
