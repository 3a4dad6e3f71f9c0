// Command cli validates a units tree offline: it runs the three loaders,
// prints their reports and exits non-zero if any unit failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/keshon/commandhub/internal/core"
	"github.com/keshon/commandhub/internal/discord"
	"github.com/keshon/commandhub/internal/loader"
	"github.com/keshon/commandhub/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	dir := fs.String("units", "units", "units directory")
	workers := fs.Int("workers", 8, "parallel loader workers")
	verbose := fs.Bool("v", false, "log every invalid unit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := "error"
	if *verbose {
		level = "warn"
	}
	log, closer := logging.New(logging.Config{Level: level})
	defer closer.Close()

	return validate(out, *dir, *workers, log)
}

func validate(out io.Writer, dir string, workers int, log zerolog.Logger) int {
	bot, err := discord.New(nil, discord.Options{Token: "validate"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	c, err := core.New(core.Options{
		Units:   os.DirFS(dir),
		Catalog: bot.Catalog(),
		Workers: workers,
		Log:     zerolog.Nop(),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer c.Stop()

	sum, loadErr := c.Load(context.Background())
	for _, r := range []loader.Report{sum.Commands, sum.Slash, sum.Events} {
		if r.Kind == "" {
			continue
		}
		fmt.Fprintln(out, r.Table())
		fmt.Fprintln(out, r.Summary())
		fmt.Fprintln(out)
		for _, row := range r.Rows {
			if row.Status != loader.StatusOK {
				log.Warn().Str("path", row.Path).Str("reason", row.Detail).Msg("invalid unit")
			}
		}
	}

	if loadErr != nil {
		fmt.Fprintln(os.Stderr, loadErr)
		return 1
	}
	if sum.Failed() > 0 {
		return 1
	}
	return 0
}
