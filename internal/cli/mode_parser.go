package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

const (
	ModeFleet     = "fleet-service"
	ModeGenerator = "generator"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeFleet, "fleet", "f":
		return ModeFleet, true
	case ModeGenerator, "gen", "g":
		return ModeGenerator, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `fleet-service --max-concurrent=100`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}

	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage:
  ./bus-fleet --mode=<service> [flags]

Services (modes):
  fleet-service    HTTP API, live fleet feed and event publisher
  generator        Posts random passenger arrivals to the fleet API

Examples:
  ./bus-fleet --mode=fleet-service --config=config/config.yaml --max-concurrent=100
  ./bus-fleet --mode=generator --api-url=http://localhost:8008/api/bus/passengers`)
}

// NewFlagSet returns a flag set for mode with usage wired to w.
func NewFlagSet(mode string, w io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(mode, pflag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage: ./bus-fleet --mode=%s [flags]\n", mode)
		fmt.Fprint(w, fs.FlagUsages())
	}
	fs.String("config", "config/config.yaml", "Path to the YAML configuration file")
	return fs
}
