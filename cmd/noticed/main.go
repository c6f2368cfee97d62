package main

import (
	"SmartNotice/internal/bootstrap"
	"SmartNotice/internal/config"
	"SmartNotice/internal/logging"
	"SmartNotice/pkg/routes"
	"fmt"
	"os"

	"go.uber.org/fx"
)

func main() {
	bootstrap.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	app := fx.New(
		routes.Modules(cfg),
		fx.WithLogger(logging.FxEventLogger),
	)
	app.Run()
}
