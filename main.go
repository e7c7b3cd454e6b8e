package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"productmatcher/cli"
	"productmatcher/signalhandler"
)

func main() {
	ctx, cancel := signalhandler.SetupHandler(context.Background())

	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	err := cli.Execute(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
