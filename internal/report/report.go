// Package report renders simulation results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/me/schedsim/pkg/model"
)

// Format selects the report encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

// Render writes res to w in the given format.
func Render(w io.Writer, res *model.Result, format Format) error {
	switch format {
	case FormatText, "":
		return renderText(w, res)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode yaml report: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// renderText prints the classic report followed by a per-task table.
func renderText(w io.Writer, res *model.Result) error {
	var b strings.Builder

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "=== Simulation Report ===")
	fmt.Fprintln(&b, "Gantt Chart:")
	for _, iv := range res.Gantt {
		fmt.Fprintf(&b, "[%4d - %4d]: %s\n", iv.Start, iv.End, iv.Label())
	}

	fmt.Fprintf(&b, "\nAverage Waiting Time: %.2f\n", res.AvgWaiting)
	fmt.Fprintf(&b, "Average Turnaround Time: %.2f\n", res.AvgTurnaround)

	if len(res.Deadlocks) > 0 {
		fmt.Fprintln(&b, "\nDeadlock Events:")
		for _, d := range res.Deadlocks {
			fmt.Fprintf(&b, "t=%d: Deadlock detected, terminating process %d\n", d.Tick, d.Victim)
		}
	} else {
		fmt.Fprintln(&b, "\nNo deadlocks detected.")
	}

	fmt.Fprintln(&b)
	if res.Scenario != "" {
		fmt.Fprintf(&b, "Scenario: %s\n", res.Scenario)
	}
	fmt.Fprintf(&b, "Run: %s\n", res.RunID)
	fmt.Fprintf(&b, "Ticks: %s (busy %s, utilization %.1f%%)\n",
		humanize.Comma(int64(res.Ticks)), humanize.Comma(int64(res.BusyTicks)), res.Utilization()*100)
	fmt.Fprintf(&b, "Tasks: %d finished, %d terminated\n\n", res.Finished, res.Terminated)

	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	if len(res.Tasks) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Task", "Arrival", "Priority", "State", "Start", "Completion", "Waiting", "Turnaround"})
	table.AppendBulk(taskRows(res.Tasks))
	table.SetFooter([]string{"", "", "", "", "", "Average",
		fmt.Sprintf("%.2f", res.AvgWaiting),
		fmt.Sprintf("%.2f", res.AvgTurnaround)})
	table.Render()
	return nil
}

func taskRows(tasks []model.TaskSummary) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		priority := strconv.Itoa(t.BasePriority)
		if t.FinalPriority != t.BasePriority {
			priority += " -> " + strconv.Itoa(t.FinalPriority)
		}
		rows = append(rows, []string{
			model.TaskLabel(t.ID),
			humanize.Comma(int64(t.Arrival)),
			priority,
			string(t.State),
			optionalTick(t.StartedAt),
			optionalTick(t.CompletedAt),
			humanize.Comma(int64(t.WaitingTime)),
			humanize.Comma(int64(t.Turnaround)),
		})
	}
	return rows
}

func optionalTick(v *int) string {
	if v == nil {
		return "-"
	}
	return humanize.Comma(int64(*v))
}
