package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"crazycar-stats/internal/history"
	"crazycar-stats/internal/pipeline"
	"crazycar-stats/internal/report"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(out io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func renderOutcome(out io.Writer, outcome pipeline.Outcome) {
	r := outcome.Report
	renderSummary(out, r)
	for _, page := range r.Pages {
		renderPage(out, page)
	}
	renderPlayers(out, r.Players)
	if len(outcome.Crawl.Failures) > 0 {
		fmt.Fprintf(out, "%d matches could not be fetched and are missing from the report\n", len(outcome.Crawl.Failures))
	}
}

func renderSummary(out io.Writer, r report.Report) {
	t := newTable(out, fmt.Sprintf("%s %s", r.Date, r.Mode))
	t.AppendRows([]table.Row{
		{"Vehicle", r.Vehicle},
		{"Score", fmt.Sprintf("%s %d : %d %s", report.TeamRed, r.RedScore, r.BlueScore, report.TeamBlue)},
		{"Wins", fmt.Sprintf("%s %d : %d %s", report.TeamRed, r.RedWins, r.BlueWins, report.TeamBlue)},
		{"Winner", r.Winner},
		{"MVP", formatAward(r.MVP)},
		{"FMVP", formatAward(r.FMVP)},
	})
	t.Render()
}

func formatAward(a report.Award) string {
	if a.Name == report.NotApplicable {
		return a.Name
	}
	return fmt.Sprintf("%s (%d pts, %d wins)", a.Name, a.Score, a.FirstPlaces)
}

func renderPage(out io.Writer, page report.Page) {
	t := newTable(out, fmt.Sprintf("%s  %s %d : %d %s", page.Name, report.TeamRed, page.RedWins, page.BlueWins, report.TeamBlue))
	t.AppendHeader(table.Row{"Map", "Start", report.TeamRed, report.TeamBlue, "Winner"})
	for _, g := range page.Groups {
		t.AppendRow(table.Row{g.Map, g.StartTime, g.Red, g.Blue, g.Winner})
	}
	t.Render()
}

func renderPlayers(out io.Writer, players []report.PlayerStat) {
	t := newTable(out, "Players")
	header := table.Row{"Player", "Team", "Score", "Matches"}
	for i := range 8 {
		header = append(header, fmt.Sprintf("#%d", i+1))
	}
	t.AppendHeader(header)
	for _, p := range players {
		row := table.Row{p.Name, p.Team, p.TotalScore, p.Matches}
		for _, count := range p.Ranks {
			row = append(row, count)
		}
		t.AppendRow(row)
	}
	t.Render()
}

func renderHistory(out io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded yet")
		return
	}
	t := newTable(out, "History")
	t.AppendHeader(table.Row{"ID", "When", "Date", "Mode", "Stop", "Matches", "Rows", "Failed", "Report"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.ID,
			run.CreatedAt.Local().Format(time.DateTime),
			run.Date,
			run.Mode,
			strings.ReplaceAll(run.StopReason, "-", " "),
			run.Matches,
			run.Rows,
			run.Failures,
			run.ReportPath,
		})
	}
	t.Render()
}
