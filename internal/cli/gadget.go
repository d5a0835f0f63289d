package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/internal/gadget"
)

func (a *App) newGadgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gadget",
		Short: "Drive a Linux USB HID gadget with the engine",
		Long: `Write controller reports to a HID gadget device node (default /dev/hidg0)
until the run is done or the command is interrupted.

The gadget must already be bound with the Pokken pad identity.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := a.newMachine()
			if err != nil {
				return err
			}

			dev, err := gadget.Open(a.cfg.Gadget.Device)
			if err != nil {
				return err
			}

			g := gadget.New(dev, m, a.cfg.Gadget.Interval, a.logger.With().Str("device", a.cfg.Gadget.Device).Logger())
			err = g.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
