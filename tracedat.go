package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log/level"

	"github.com/phil-mansfield/tracedat/lib"
	"github.com/phil-mansfield/tracedat/lib/console"
	g_error "github.com/phil-mansfield/tracedat/lib/error"
	"github.com/phil-mansfield/tracedat/lib/logging"
)

func main() {
	// Parse arguments. Nothing touches the input until they're valid.
	mode, configFile, cmdArgs, err := lib.ParseCommandLine(os.Args[1:])
	if err != nil {
		usage(err)
	}
	rawArgs, err := lib.ParseConfigFile(configFile)
	if err != nil {
		usage(err)
	}
	rawArgs.Overwrite(cmdArgs)

	args, err := rawArgs.Process(mode)
	if err != nil {
		usage(err)
	}

	logger, err := logging.New(os.Stderr, args.LogLevel)
	if err != nil {
		usage(err)
	}
	env := &lib.Env{Logger: logger, Console: console.New(os.Stdout)}
	level.Debug(logger).Log("msg", "starting", "mode", mode,
		"version", lib.Version, "config", configFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		level.Info(logger).Log("msg", "received shutdown signal")
		cancel()
	}()

	if err := lib.Run(ctx, mode, args, env); err != nil {
		g_error.Fatal(logger, err)
	}
}

func usage(err error) {
	fmt.Fprintf(os.Stderr, "error: %s\n\n", err.Error())
	lib.PrintHelp(os.Stderr)
	os.Exit(1)
}
