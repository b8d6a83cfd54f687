package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	fleetservice "bus-fleet/cmd/fleet_service"
	generatorcmd "bus-fleet/cmd/generator"
	"bus-fleet/internal/cli"

	"github.com/spf13/pflag"
)

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, svcArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// run the service specified by the mode flag
	switch mode {

	case cli.ModeFleet:
		fs := cli.NewFlagSet(cli.ModeFleet, os.Stderr)
		maxConc := fs.Int("max-concurrent", 100, "Maximum number of concurrent HTTP requests to process")
		prefetch := fs.Int("prefetch", 16, "RabbitMQ prefetch count for the live feed consumer")
		parseOrExit(fs, svcArgs)

		if *maxConc < 1 {
			fmt.Fprintln(os.Stderr, "Error: --max-concurrent must be >= 1")
			fs.Usage()
			os.Exit(2)
		}
		if *prefetch <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --prefetch must be > 0")
			fs.Usage()
			os.Exit(2)
		}

		configPath, _ := fs.GetString("config")
		if err := fleetservice.Run(ctx, fleetservice.Options{
			ConfigPath:    configPath,
			MaxConcurrent: *maxConc,
			Prefetch:      *prefetch,
		}); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeGenerator:
		fs := cli.NewFlagSet(cli.ModeGenerator, os.Stderr)
		apiURL := fs.String("api-url", "", "Fleet API endpoint (overrides generator.api_url)")
		parseOrExit(fs, svcArgs)

		configPath, _ := fs.GetString("config")
		if err := generatorcmd.Run(ctx, generatorcmd.Options{
			ConfigPath: configPath,
			APIURL:     *apiURL,
		}); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}

func parseOrExit(fs *pflag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
