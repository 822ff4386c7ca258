package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/kplor/internal/shared"
)

const (
	version        = "0.1.0"
	defaultSession = "default"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})
	app := runner.app()

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrAuthCancelled) {
			logger.Warn("sign-in cancelled")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
