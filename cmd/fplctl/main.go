package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/m-mukund/fpl-optimizer/internal/cli"
	"github.com/m-mukund/fpl-optimizer/pkg/logger"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:8000", "Base URL of the service")
		mode    = flag.String("mode", cli.ModeTeam, "transfer, team, search or stats")
		roster  = flag.String("roster", "", "Comma-separated player ids (transfer mode)")
		budget  = flag.Int("budget", 0, "Remaining budget in tenths of a million (transfer mode)")
		query   = flag.String("query", "", "Player name fragment (search mode)")
		format  = flag.String("format", cli.FormatTable, "Output format: table or json")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		cli.ShowHelp()
		return
	}

	if err := logger.InitWith(os.Stderr, "text"); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ids, err := cli.ParseRoster(*roster)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &cli.Config{
		BaseURL: *baseURL,
		Mode:    *mode,
		Roster:  ids,
		Budget:  *budget,
		Query:   *query,
		Timeout: *timeout,
		Format:  *format,
		Out:     os.Stdout,
	}

	if err := cli.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("fplctl: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
