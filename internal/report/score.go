package report

import (
	"strings"

	"crazycar-stats/internal/crawl"
	"crazycar-stats/pkg/htmlutil"
)

const (
	TeamRed  = "红队"
	TeamBlue = "蓝队"
)

var scoreTable = map[int]int{1: 10, 2: 8, 3: 6, 4: 5, 5: 4, 6: 3, 7: 2, 8: 1}

// results containing any of these did not finish the race
var zeroScorePatterns = []string{"未完成", "00:00", "0-1"}

// Score returns the points a rank is worth, a result that did not finish is
// worth nothing whatever the rank.
func Score(rank int, result string) int {
	for _, pattern := range zeroScorePatterns {
		if strings.Contains(result, pattern) {
			return 0
		}
	}
	return scoreTable[rank]
}

// ScoredRow is a MatchRow with the name it is reported under and its points.
type ScoredRow struct {
	crawl.MatchRow
	DisplayName string
	Score       int
}

// DisplayName applies the substitution table to a role, roles without an
// entry are shown as they are.
func DisplayName(role string, substitutions map[string]string) string {
	role = htmlutil.CleanText(role)
	if name, ok := substitutions[role]; ok {
		return name
	}
	return role
}

func ScoreRows(rows []crawl.MatchRow, substitutions map[string]string) []ScoredRow {
	out := make([]ScoredRow, len(rows))
	for i, row := range rows {
		out[i] = ScoredRow{
			MatchRow:    row,
			DisplayName: DisplayName(row.Role, substitutions),
			Score:       Score(row.Rank, row.Result),
		}
	}
	return out
}
