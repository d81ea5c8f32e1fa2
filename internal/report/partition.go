package report

import (
	"cmp"
	"math"
	"slices"

	"crazycar-stats/internal/maporder"
)

const (
	DefaultPageName = "全场统计"
	UnnamedPage     = "未命名"
)

// PageDefinition selects the groups whose map lies between StartMap and EndMap
// (inclusive) in catalogue order. Empty or unknown bounds are open.
type PageDefinition struct {
	Name     string `json:"name"`
	StartMap string `json:"start_map"`
	EndMap   string `json:"end_map"`
}

type Page struct {
	Name     string         `json:"name"`
	Groups   []GroupSummary `json:"groups"`
	RedWins  int            `json:"red_wins"`
	BlueWins int            `json:"blue_wins"`
}

func newPage(name string, groups []GroupSummary) Page {
	page := Page{Name: name, Groups: groups}
	for _, g := range groups {
		switch g.Winner {
		case TeamRed:
			page.RedWins++
		case TeamBlue:
			page.BlueWins++
		}
	}
	return page
}

func (d PageDefinition) bounds(catalogue maporder.Catalogue) (int, int) {
	start := catalogue.Ordinal(d.StartMap)
	if start == maporder.Unknown {
		start = 0
	}
	end := catalogue.Ordinal(d.EndMap)
	if end == maporder.Unknown {
		end = math.MaxInt
	}
	return start, end
}

// Partition splits groups into pages. Without definitions a single default page
// keeps every group in discovery order, otherwise each page is sorted by map
// ordinal. Pages without any group are dropped.
func Partition(groups []GroupSummary, defs []PageDefinition, catalogue maporder.Catalogue) []Page {
	if len(defs) == 0 {
		if len(groups) == 0 {
			return nil
		}
		return []Page{newPage(DefaultPageName, slices.Clone(groups))}
	}

	var pages []Page
	for _, def := range defs {
		start, end := def.bounds(catalogue)

		var subset []GroupSummary
		for _, g := range groups {
			ordinal := catalogue.Ordinal(g.Map)
			// unknown maps are below every start bound
			if ordinal == maporder.Unknown || ordinal < start || ordinal > end {
				continue
			}
			subset = append(subset, g)
		}
		if len(subset) == 0 {
			continue
		}
		slices.SortStableFunc(subset, func(a, b GroupSummary) int {
			return cmp.Compare(catalogue.Ordinal(a.Map), catalogue.Ordinal(b.Map))
		})

		name := def.Name
		if name == "" {
			name = UnnamedPage
		}
		pages = append(pages, newPage(name, subset))
	}
	return pages
}
