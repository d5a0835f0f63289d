// Command eggctl is the host companion of the egg bot firmware.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/internal/cli"
)

func main() {
	if err := cli.New().Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
