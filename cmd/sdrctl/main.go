package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/huangang/sdrdesk/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		format, _ := cmd.PersistentFlags().GetString("format")
		(&cli.OutputFormatter{Format: format, Writer: os.Stderr}).Error(err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
