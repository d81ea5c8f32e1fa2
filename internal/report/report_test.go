package report

import (
	"context"
	"fmt"
	"testing"
	"time"

	"crazycar-stats/internal/components/chrono"
	"crazycar-stats/internal/components/telemetry"
	"crazycar-stats/internal/crawl"
	"crazycar-stats/internal/maporder"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestScoreTable(t *testing.T) {
	expected := []int{10, 8, 6, 5, 4, 3, 2, 1}
	for i, points := range expected {
		require.Equal(t, points, Score(i+1, "01:23.45"), "rank %d", i+1)
	}
	for _, rank := range []int{-1, 0, 9, 100} {
		require.Zero(t, Score(rank, "01:23.45"), "rank %d", rank)
	}
}

func TestScoreDidNotFinish(t *testing.T) {
	for _, result := range []string{"未完成", "00:00", "0-1", "'00:00.00", "比赛未完成"} {
		for rank := 1; rank <= 8; rank++ {
			require.Zero(t, Score(rank, result), "%s at rank %d", result, rank)
		}
	}
}

func TestDisplayName(t *testing.T) {
	subs := map[string]string{"十郎": "Shiro"}
	require.Equal(t, "Shiro", DisplayName("十郎", subs))
	require.Equal(t, "Shiro", DisplayName("十郎 ", subs))
	require.Equal(t, "凌霄", DisplayName("凌霄", subs))
	require.Equal(t, "凌霄", DisplayName("凌霄", nil))
}

func TestResolveDate(t *testing.T) {
	cases := []struct {
		start    string
		expected string
	}{
		{"12-01 20:30", "2025-12-01"},
		{"2024/12/01 20:30", "2024-12-01"},
		{"2024-12-01 20:30", "2024-12-01"},
		{"昨天", "昨天"},
		{"", UnknownDate},
		{"   ", UnknownDate},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, ResolveDate(c.start, 2025), c.start)
	}
}

func TestGroupTieBreak(t *testing.T) {
	key := groupKey{startTime: "12-01 20:30", m: "香港"}

	blueFirst := summarizeGroup(key, []ScoredRow{
		{MatchRow: crawl.MatchRow{Team: TeamRed, Rank: 3}, Score: 10},
		{MatchRow: crawl.MatchRow{Team: TeamBlue, Rank: 1}, Score: 10},
	})
	require.Equal(t, 10, blueFirst.Red)
	require.Equal(t, 10, blueFirst.Blue)
	require.Equal(t, TeamBlue, blueFirst.Winner)

	noFirst := summarizeGroup(key, []ScoredRow{
		{MatchRow: crawl.MatchRow{Team: TeamBlue, Rank: 2}, Score: 10},
		{MatchRow: crawl.MatchRow{Team: TeamRed, Rank: 2}, Score: 10},
	})
	require.Equal(t, TeamRed, noFirst.Winner)

	strict := summarizeGroup(key, []ScoredRow{
		{MatchRow: crawl.MatchRow{Team: TeamRed, Rank: 1}, Score: 10},
		{MatchRow: crawl.MatchRow{Team: TeamBlue, Rank: 2}, Score: 11},
	})
	require.Equal(t, TeamBlue, strict.Winner)
}

// testCatalogue has 65 maps with 决战山脊 at ordinal 20.
func testCatalogue(t *testing.T) maporder.Catalogue {
	names := make([]string, 65)
	for i := range names {
		names[i] = fmt.Sprintf("map%02d", i)
	}
	names[20] = "决战山脊"
	catalogue, err := maporder.NewCatalogue(names)
	require.NoError(t, err)
	return catalogue
}

func groupOn(m, winner string) GroupSummary {
	return GroupSummary{Map: m, StartTime: "12-01 " + m, Winner: winner}
}

func maps(groups []GroupSummary) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Map
	}
	return out
}

func TestPartitionByOrdinal(t *testing.T) {
	catalogue := testCatalogue(t)
	groups := []GroupSummary{
		groupOn("map25", TeamRed),
		groupOn("map05", TeamBlue),
		groupOn("决战山脊", TeamBlue),
		groupOn("秋名山", TeamRed),
		groupOn("map64", TeamBlue),
		groupOn("map25", TeamBlue),
	}

	pages := Partition(groups, []PageDefinition{
		{Name: "后半场", StartMap: "决战山脊"},
		{Name: "空", StartMap: "map30", EndMap: "map40"},
		{StartMap: "map00", EndMap: "map10"},
		{Name: "全部", StartMap: "不存在", EndMap: "也不存在"},
	}, catalogue)

	require.Len(t, pages, 3)

	require.Equal(t, "后半场", pages[0].Name)
	require.Equal(t, []string{"决战山脊", "map25", "map25", "map64"}, maps(pages[0].Groups))
	require.Equal(t, TeamRed, pages[0].Groups[1].Winner)
	require.Equal(t, 1, pages[0].RedWins)
	require.Equal(t, 3, pages[0].BlueWins)

	require.Equal(t, UnnamedPage, pages[1].Name)
	require.Equal(t, []string{"map05"}, maps(pages[1].Groups))

	// open bounds cover the whole catalogue but never an unknown map
	require.Equal(t, "全部", pages[2].Name)
	require.Equal(t, []string{"map05", "决战山脊", "map25", "map25", "map64"}, maps(pages[2].Groups))
}

func TestPartitionDefaultPage(t *testing.T) {
	groups := []GroupSummary{
		groupOn("map25", TeamRed),
		groupOn("秋名山", TeamBlue),
		groupOn("map05", TeamRed),
	}
	pages := Partition(groups, nil, testCatalogue(t))
	require.Len(t, pages, 1)
	require.Equal(t, DefaultPageName, pages[0].Name)
	require.Equal(t, []string{"map25", "秋名山", "map05"}, maps(pages[0].Groups))
	require.Equal(t, 2, pages[0].RedWins)
	require.Equal(t, 1, pages[0].BlueWins)

	require.Empty(t, Partition(nil, nil, testCatalogue(t)))
}

func row(start, m, role, car, team string, rank int, result string) crawl.MatchRow {
	return crawl.MatchRow{
		Mode: "组队竞速", Map: m, StartTime: start,
		Role: role, Car: car, Team: team, Rank: rank, Result: result,
	}
}

func newTestEngine(opts EngineOptions, tel telemetry.API) *Engine {
	clock := chrono.FixedImpl{At: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewEngine(maporder.Official(), opts, clock, tel)
}

func TestBuild(t *testing.T) {
	rows := []crawl.MatchRow{
		row("12-01 20:30", "香港", "十郎", "黑武士", TeamRed, 1, "01:02.03"),
		row("12-01 20:30", "香港", "凌霄", "黑武士", TeamBlue, 2, "01:03.00"),
		row("12-01 20:30", "香港", "阿飞", "黑武士", TeamRed, 3, "01:04.00"),
		row("12-01 20:30", "香港", "小白", "黑武士", TeamBlue, 4, "未完成"),

		row("12-01 20:25", "长城", "凌霄", "黑武士", TeamBlue, 1, "01:10.00"),
		row("12-01 20:25", "长城", "十郎", "雷诺", TeamRed, 2, "01:11.00"),
		row("12-01 20:25", "长城", "小白", "雷诺", TeamBlue, 3, "01:12.00"),
		row("12-01 20:25", "长城", "阿飞", "雷诺", TeamRed, 4, "01:13.00"),
	}
	tel := telemetry.NewRecorder()
	engine := newTestEngine(EngineOptions{Substitutions: map[string]string{"十郎": "Shiro"}}, tel)

	r, err := engine.Build(context.Background(), rows)
	require.NoError(t, err)

	groups := []GroupSummary{
		{Map: "香港", StartTime: "12-01 20:30", Red: 16, Blue: 8, Winner: TeamRed},
		{Map: "长城", StartTime: "12-01 20:25", Red: 13, Blue: 16, Winner: TeamBlue},
	}
	expected := Report{
		Date:      "2026-12-01",
		Mode:      "组队竞速",
		Vehicle:   "黑武士",
		RedScore:  29,
		BlueScore: 24,
		RedWins:   1,
		BlueWins:  1,
		Winner:    TeamRed,
		MVP:       Award{Name: "Shiro", Score: 18, FirstPlaces: 1},
		FMVP:      Award{Name: "凌霄", Score: 18, FirstPlaces: 1},
		Players: []PlayerStat{
			{Name: "Shiro", Team: TeamRed, Ranks: [8]int{1, 1}, TotalScore: 18, Matches: 2},
			{Name: "凌霄", Team: TeamBlue, Ranks: [8]int{1, 1}, TotalScore: 18, Matches: 2},
			{Name: "阿飞", Team: TeamRed, Ranks: [8]int{0, 0, 1, 1}, TotalScore: 11, Matches: 2},
			{Name: "小白", Team: TeamBlue, Ranks: [8]int{0, 0, 1, 1}, TotalScore: 6, Matches: 2},
		},
		Groups: groups,
		Pages:  []Page{{Name: DefaultPageName, Groups: groups, RedWins: 1, BlueWins: 1}},
	}
	require.Empty(t, cmp.Diff(expected, r))
	require.Empty(t, tel.Warnings())
}

func TestBuildWithPages(t *testing.T) {
	rows := []crawl.MatchRow{
		row("2025/12/01 20:30", "决战山脊", "十郎", "", TeamRed, 1, "01:00.00"),
		row("2025/12/01 20:30", "决战山脊", "凌霄", "", TeamBlue, 2, "01:01.00"),
		row("2025/12/01 20:20", "香港", "十郎", "", TeamRed, 2, "01:00.00"),
		row("2025/12/01 20:20", "香港", "凌霄", "", TeamBlue, 1, "01:01.00"),
	}
	engine := newTestEngine(EngineOptions{Pages: []PageDefinition{
		{Name: "前半场", EndMap: "雪邦"},
		{Name: "后半场", StartMap: "决战山脊"},
		{Name: "无", StartMap: "绿色山谷", EndMap: "火山"},
	}}, telemetry.NewRecorder())

	r, err := engine.Build(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, "2025-12-01", r.Date)
	require.Equal(t, UnknownVehicle, r.Vehicle)
	require.Len(t, r.Pages, 2)
	require.Equal(t, "前半场", r.Pages[0].Name)
	require.Equal(t, []string{"香港"}, maps(r.Pages[0].Groups))
	require.Equal(t, 1, r.Pages[0].BlueWins)
	require.Equal(t, "后半场", r.Pages[1].Name)
	require.Equal(t, []string{"决战山脊"}, maps(r.Pages[1].Groups))
	require.Equal(t, 1, r.Pages[1].RedWins)
}

func TestBuildNoData(t *testing.T) {
	_, err := newTestEngine(EngineOptions{}, telemetry.NewRecorder()).Build(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoData)
}

func TestBuildSingleTeam(t *testing.T) {
	rows := []crawl.MatchRow{
		row("12-01 20:30", "香港", "十郎", "黑武士", TeamRed, 1, "01:02.03"),
		row("12-01 20:30", "香港", "阿飞", "黑武士", TeamRed, 2, "01:03.03"),
	}
	tel := telemetry.NewRecorder()
	r, err := newTestEngine(EngineOptions{DefaultYear: 2024}, tel).Build(context.Background(), rows)
	require.NoError(t, err)

	require.Equal(t, "2024-12-01", r.Date)
	require.Equal(t, TeamRed, r.Winner)
	require.Equal(t, Award{Name: NotApplicable}, r.MVP)
	require.Equal(t, Award{Name: NotApplicable}, r.FMVP)
	require.Len(t, r.Players, 2)
	require.Len(t, tel.Warnings(), 1)
	require.Equal(t, "report: engine.mvp", tel.Warnings()[0].ID)
}

func TestBuildUnknownMode(t *testing.T) {
	rows := []crawl.MatchRow{{Role: "十郎", Team: TeamRed, Rank: 1}}
	r, err := newTestEngine(EngineOptions{}, telemetry.NewRecorder()).Build(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, UnknownMode, r.Mode)
	require.Equal(t, UnknownDate, r.Date)
}

func TestMostFrequentVehicle(t *testing.T) {
	rows := []crawl.MatchRow{{Car: "雷诺"}, {Car: "黑武士"}, {Car: ""}, {Car: ""}, {Car: "雷诺"}, {Car: "黑武士"}}
	// tie goes to the lexically smallest
	require.Equal(t, "雷诺", mostFrequentVehicle(rows))
	require.Equal(t, UnknownVehicle, mostFrequentVehicle([]crawl.MatchRow{{}}))
}
