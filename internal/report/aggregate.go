// Package report turns crawled match rows into scores, wins, player rankings
// and the map-range pages a report is charted by.
package report

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"crazycar-stats/internal/components/assert"
	"crazycar-stats/internal/components/chrono"
	"crazycar-stats/internal/components/telemetry"
	"crazycar-stats/internal/crawl"
	"crazycar-stats/internal/maporder"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const report_engine_mvp = "engine.mvp"

const (
	UnknownDate    = "未知日期"
	UnknownMode    = "未知模式"
	UnknownVehicle = "未知车辆"
	NotApplicable  = "N/A"
)

var ErrNoData = errors.New("report: no data")

var tracer = otel.Tracer("crazycar.internal.report")

// GroupSummary is the outcome of one played match.
type GroupSummary struct {
	Map       string `json:"map"`
	StartTime string `json:"start_time"`
	Red       int    `json:"red"`
	Blue      int    `json:"blue"`
	Winner    string `json:"winner"`
}

type PlayerStat struct {
	Name string `json:"name"`
	Team string `json:"team"`
	// Ranks[i] counts the matches finished at rank i+1.
	Ranks      [8]int `json:"ranks"`
	TotalScore int    `json:"total_score"`
	Matches    int    `json:"matches"`
}

// Award is the MVP (best of the winning team) or FMVP (best of the losing team).
type Award struct {
	Name        string `json:"name"`
	Score       int    `json:"score"`
	FirstPlaces int    `json:"first_places"`
}

type Report struct {
	Date      string         `json:"date"`
	Mode      string         `json:"mode"`
	Vehicle   string         `json:"vehicle"`
	RedScore  int            `json:"red_score"`
	BlueScore int            `json:"blue_score"`
	RedWins   int            `json:"red_wins"`
	BlueWins  int            `json:"blue_wins"`
	Winner    string         `json:"winner"`
	MVP       Award          `json:"mvp"`
	FMVP      Award          `json:"fmvp"`
	Players   []PlayerStat   `json:"players"`
	Groups    []GroupSummary `json:"groups"`
	Pages     []Page         `json:"pages"`
}

type EngineOptions struct {
	Substitutions map[string]string
	Pages         []PageDefinition
	// DefaultYear is prefixed to dates without a year, 0 means the current year.
	DefaultYear int
}

// Engine builds reports, it holds no state between builds.
type Engine struct {
	catalogue maporder.Catalogue
	opts      EngineOptions
	clock     chrono.API
	tel       telemetry.API
}

func NewEngine(catalogue maporder.Catalogue, opts EngineOptions, clock chrono.API, tel telemetry.API) *Engine {
	assert.NotNil(clock)
	assert.NotNil(tel)

	return &Engine{
		catalogue: catalogue,
		opts:      opts,
		clock:     clock,
		tel:       telemetry.NewScopedAPI("report", tel),
	}
}

func (e *Engine) defaultYear() int {
	if e.opts.DefaultYear > 0 {
		return e.opts.DefaultYear
	}
	return e.clock.Now().In(e.clock.Location()).Year()
}

// Build aggregates rows (in discovery order) into a report. It returns
// ErrNoData when there is nothing to aggregate, every other degenerate input
// produces sentinel values instead of an error.
func (e *Engine) Build(ctx context.Context, rows []crawl.MatchRow) (Report, error) {
	_, span := tracer.Start(ctx, "Build")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(rows)))

	if len(rows) == 0 {
		return Report{}, ErrNoData
	}

	scored := ScoreRows(rows, e.opts.Substitutions)

	r := Report{
		Date:    ResolveDate(rows[0].StartTime, e.defaultYear()),
		Mode:    rows[0].Mode,
		Vehicle: mostFrequentVehicle(rows),
		Groups:  groupSummaries(scored),
		Players: playerStats(scored),
	}
	if r.Mode == "" {
		r.Mode = UnknownMode
	}

	for _, g := range r.Groups {
		r.RedScore += g.Red
		r.BlueScore += g.Blue
		switch g.Winner {
		case TeamRed:
			r.RedWins++
		case TeamBlue:
			r.BlueWins++
		}
	}
	r.Winner = TeamRed
	if r.BlueWins > r.RedWins {
		r.Winner = TeamBlue
	}

	r.MVP, r.FMVP = e.awards(r.Players, r.Winner)
	r.Pages = Partition(r.Groups, e.opts.Pages, e.catalogue)

	span.SetAttributes(
		attribute.Int("groups", len(r.Groups)),
		attribute.Int("players", len(r.Players)),
		attribute.String("winner", r.Winner),
	)
	return r, nil
}

// ResolveDate turns the start time of a match into a report date.
//
//	"12-01 20:30"      -> "<year>-12-01"
//	"2024/12/01 20:30" -> "2024-12-01"
func ResolveDate(startTime string, year int) string {
	datePart, _, _ := strings.Cut(strings.TrimSpace(startTime), " ")
	if datePart == "" {
		return UnknownDate
	}
	if len(strings.Split(datePart, "-")) == 2 {
		return fmt.Sprintf("%d-%s", year, datePart)
	}
	if strings.Contains(datePart, "/") {
		return strings.ReplaceAll(datePart, "/", "-")
	}
	return datePart
}

func mostFrequentVehicle(rows []crawl.MatchRow) string {
	counts := map[string]int{}
	for _, row := range rows {
		if row.Car == "" {
			continue
		}
		counts[row.Car]++
	}

	best := ""
	for car, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && car < best) {
			best = car
		}
	}
	if best == "" {
		return UnknownVehicle
	}
	return best
}

type groupKey struct {
	startTime string
	m         string
}

func groupSummaries(rows []ScoredRow) []GroupSummary {
	var order []groupKey
	members := map[groupKey][]ScoredRow{}
	for _, row := range rows {
		key := groupKey{startTime: row.StartTime, m: row.Map}
		if _, seen := members[key]; !seen {
			order = append(order, key)
		}
		members[key] = append(members[key], row)
	}

	out := make([]GroupSummary, 0, len(order))
	for _, key := range order {
		out = append(out, summarizeGroup(key, members[key]))
	}
	return out
}

func summarizeGroup(key groupKey, rows []ScoredRow) GroupSummary {
	g := GroupSummary{Map: key.m, StartTime: key.startTime}
	for _, row := range rows {
		switch row.Team {
		case TeamRed:
			g.Red += row.Score
		case TeamBlue:
			g.Blue += row.Score
		}
	}

	switch {
	case g.Red > g.Blue:
		g.Winner = TeamRed
	case g.Blue > g.Red:
		g.Winner = TeamBlue
	default:
		// a drawn match goes to whoever crossed the line first
		g.Winner = TeamRed
		for _, row := range rows {
			if row.Rank == 1 {
				g.Winner = row.Team
				break
			}
		}
	}
	return g
}

// playerStats returns the player table sorted by total score, ties by name.
func playerStats(rows []ScoredRow) []PlayerStat {
	index := map[string]int{}
	var players []PlayerStat
	for _, row := range rows {
		i, ok := index[row.DisplayName]
		if !ok {
			i = len(players)
			index[row.DisplayName] = i
			players = append(players, PlayerStat{Name: row.DisplayName, Team: row.Team})
		}
		p := &players[i]
		if row.Rank >= 1 && row.Rank <= len(p.Ranks) {
			p.Ranks[row.Rank-1]++
		}
		p.TotalScore += row.Score
		p.Matches++
	}

	slices.SortStableFunc(players, func(a, b PlayerStat) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return players
}

func (e *Engine) awards(players []PlayerStat, winner string) (Award, Award) {
	loser := TeamBlue
	if winner == TeamBlue {
		loser = TeamRed
	}

	mvp, okWinner := bestOfTeam(players, winner)
	fmvp, okLoser := bestOfTeam(players, loser)
	if !okWinner || !okLoser {
		e.tel.ReportWarning(report_engine_mvp, "a team has no players", winner, okWinner, okLoser)
		na := Award{Name: NotApplicable}
		return na, na
	}
	return mvp, fmvp
}

// bestOfTeam expects players to already be sorted.
func bestOfTeam(players []PlayerStat, team string) (Award, bool) {
	for _, p := range players {
		if p.Team != team {
			continue
		}
		return Award{Name: p.Name, Score: p.TotalScore, FirstPlaces: p.Ranks[0]}, true
	}
	return Award{}, false
}
