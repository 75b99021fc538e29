package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/richmansdream/crmdesk/internal/cmd"
	"github.com/richmansdream/crmdesk/internal/exitcode"
	"github.com/richmansdream/crmdesk/internal/ux"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		if stderrors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			exitcode.Exit(exitcode.Interrupted)
		}

		fmt.Fprintf(os.Stderr, "Error: %s\n", ux.Describe(err))
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
