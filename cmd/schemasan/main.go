// Command schemasan removes duplicate records from application schema
// documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/schemasan/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return cli.GetExitCode(err)
}
