package commands

import (
	"bytes"
	"testing"
	"time"

	"crazycar-stats/internal/history"
	"crazycar-stats/internal/maporder"
	"crazycar-stats/internal/pipeline"
	"crazycar-stats/internal/report"

	"github.com/stretchr/testify/require"
)

func TestRenderOutcome(t *testing.T) {
	outcome := pipeline.Outcome{
		Report: report.Report{
			Date:     "2026-12-01",
			Mode:     "组队竞速",
			Vehicle:  "黑武士",
			RedScore: 20, BlueScore: 14,
			RedWins: 2, BlueWins: 1,
			Winner: report.TeamRed,
			MVP:    report.Award{Name: "十郎", Score: 20, FirstPlaces: 2},
			FMVP:   report.Award{Name: report.NotApplicable},
			Players: []report.PlayerStat{
				{Name: "十郎", Team: report.TeamRed, Ranks: [8]int{2}, TotalScore: 20, Matches: 2},
			},
			Pages: []report.Page{{
				Name:    "第一阶段",
				RedWins: 1,
				Groups: []report.GroupSummary{
					{Map: "长城", StartTime: "12-01 20:20", Red: 10, Blue: 0, Winner: report.TeamRed},
				},
			}},
		},
	}

	var out bytes.Buffer
	renderOutcome(&out, outcome)
	text := out.String()
	require.Contains(t, text, "2026-12-01 组队竞速")
	require.Contains(t, text, "十郎 (20 pts, 2 wins)")
	require.Contains(t, text, report.NotApplicable)
	require.Contains(t, text, "第一阶段")
	require.Contains(t, text, "长城")
	require.NotContains(t, text, "could not be fetched")
}

func TestRenderHistory(t *testing.T) {
	var out bytes.Buffer
	renderHistory(&out, nil)
	require.Equal(t, "no runs recorded yet\n", out.String())

	out.Reset()
	renderHistory(&out, []history.Run{{
		ID:         7,
		CreatedAt:  time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC),
		Date:       "2026-12-01",
		Mode:       "组队竞速",
		StopReason: "trigger-reached",
		Matches:    3,
		Rows:       6,
		ReportPath: "data/Report_2026-12-01_1.json",
	}})
	require.Contains(t, out.String(), "trigger reached")
	require.Contains(t, out.String(), "data/Report_2026-12-01_1.json")
}

func TestLookupMap(t *testing.T) {
	catalogue := maporder.Official()
	require.Equal(t, "绿色山谷 is map #0", lookupMap(catalogue, "绿色山谷"))
	require.Contains(t, lookupMap(catalogue, "绿色山"), "did you mean 绿色山谷?")
}
