package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTransfer(w io.Writer, t *Transfer) error {
	if t == nil {
		_, err := fmt.Fprintln(w, "No transfer available.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("", "Player", "Pos", "Cost", "Points")
	_ = table.Append("OUT", t.Outgoing.WebName+" #"+strconv.Itoa(t.Outgoing.PlayerID), t.Outgoing.Position, money(t.Outgoing.Cost), points(t.Outgoing.Points))
	_ = table.Append("IN", t.Incoming.WebName+" #"+strconv.Itoa(t.Incoming.PlayerID), t.Incoming.Position, money(t.Incoming.Cost), points(t.Incoming.Points))
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Improvement: %+.2f points\n", t.Improvement)
	return err
}

func renderTeam(w io.Writer, players []Projection) error {
	if len(players) == 0 {
		_, err := fmt.Fprintln(w, "No players available for this gameweek.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Pos", "Player", "Cost", "Points")
	var total float64
	for _, p := range players {
		_ = table.Append(p.Position, p.WebName, money(p.Cost), points(p.Points))
		total += p.Points
	}
	if err := table.Render(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Gameweek %d: %d players, %.2f projected points\n", players[0].Gameweek, len(players), total)
	return err
}

func renderPlayers(w io.Writer, players []Player) error {
	if len(players) == 0 {
		_, err := fmt.Fprintln(w, "No matching players.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Player")
	for _, p := range players {
		_ = table.Append(strconv.Itoa(p.ID), p.WebName)
	}
	return table.Render()
}

func renderStats(w io.Writer, stats map[string]any) error {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Stat", "Value")
	for _, k := range keys {
		_ = table.Append(k, fmt.Sprint(stats[k]))
	}
	return table.Render()
}

// money formats budget units (tenths of a million) as pounds.
func money(cost int) string {
	return fmt.Sprintf("£%.1fm", float64(cost)/10)
}

func points(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
