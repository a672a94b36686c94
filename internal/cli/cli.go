package cli

import "os"

// ShowHelp prints usage information for fplctl.
func ShowHelp() {
	os.Stdout.WriteString(`fplctl
======

Terminal client for the FPL optimizer service.

Usage:
  fplctl -mode <transfer|team|search|stats> [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8000")
  -mode string
        transfer, team, search or stats (default "team")
  -roster string
        Comma-separated player ids of your squad (transfer mode)
  -budget int
        Remaining budget in tenths of a million (transfer mode)
  -query string
        Player name fragment (search mode)
  -format string
        table or json (default "table")
  -timeout duration
        HTTP request timeout (default 10s)
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Best single transfer for a squad with 0.5m in the bank
  fplctl -mode transfer -roster 7,12,30,41 -budget 5

  # Best team for the active gameweek
  fplctl -mode team

  # Find a player id
  fplctl -mode search -query sala
`)
}
