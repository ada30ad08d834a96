package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmachibya/faithexercises-api/notify"
	"github.com/dmachibya/faithexercises-api/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Deliver deferred task notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateQueue(); err != nil {
			return err
		}
		return runWorker(cmd.Context())
	},
}

func runWorker(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	dispatcher, scheduler, err := a.dispatcher(ctx)
	if err != nil {
		return err
	}
	handler := notify.NewJobHandler(a.store, dispatcher, a.logger)
	w := worker.New(scheduler, handler, cfg.WorkerPollInterval, cfg.WorkerVisibilityTimeout, a.logger)
	return w.Run(ctx)
}
