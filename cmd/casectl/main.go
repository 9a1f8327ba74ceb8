package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/clearcase/worker/internal/assets"
	"github.com/clearcase/worker/internal/config"
	"github.com/clearcase/worker/internal/infrastructure"
	"github.com/clearcase/worker/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer infra.Database.Connection().Close()

	mod, err := worker.NewModule(cfg, infra)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	db := infra.Database.Connection()
	app := newCLIApp(&deps{
		Queue: infra.Queue,
		Store: infra.Storage,
		Register: func(ctx context.Context, cmd assets.RegisterCommand) (*assets.Asset, error) {
			return assets.Register(ctx, db, cmd)
		},
		Scheduler: mod.Scheduler,
		Due:       mod.Due,
		Out:       os.Stdout,
	})

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
