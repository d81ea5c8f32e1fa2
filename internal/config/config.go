// Package config holds the settings of a crawl and report run. A Config is
// loaded once and handed to whatever needs it, nothing reads it globally.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"crazycar-stats/internal/crawl"
	"crazycar-stats/internal/report"
	"crazycar-stats/internal/scrapers/ckfksc"
	"crazycar-stats/lib/configutil"
)

const DefaultPath = "crazycar.json5"

type Account struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// GameSettings keeps the naming of the site: StartMaps are the oldest matches
// of a session (where the crawl stops) and EndMap is the newest one (where
// collecting begins, empty to begin with the first match listed).
type GameSettings struct {
	Mode      string   `json:"mode"`
	StartMaps []string `json:"start_maps"`
	EndMap    string   `json:"end_map"`
}

type CrawlSettings struct {
	BaseUrl           string  `json:"base_url"`
	Workers           int     `json:"workers"`
	PageDelayMs       int     `json:"page_delay_ms"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`
}

type Config struct {
	Account         Account                 `json:"account"`
	SubstitutionMap map[string]string       `json:"substitution_map"`
	CustomPages     []report.PageDefinition `json:"custom_pages"`
	GameSettings    GameSettings            `json:"game_settings"`
	Crawl           CrawlSettings           `json:"crawl"`
	// DefaultYear is prefixed to dates shown without a year, 0 is the current year.
	DefaultYear int    `json:"default_year"`
	DataDir     string `json:"data_dir"`
	HistoryKeep int    `json:"history_keep"`
}

func Default() Config {
	return Config{
		SubstitutionMap: map[string]string{
			"新手o↘.ヾ":  "十郎",
			"新手o↘.":   "凌霄",
			"幻紫高达战队": "幻紫高达",
			"炫金高达战队": "炫金高达",
		},
		CustomPages: []report.PageDefinition{
			{Name: "第一阶段", StartMap: "绿色山谷", EndMap: "雪邦"},
			{Name: "第二阶段", StartMap: "决战山脊", EndMap: ""},
		},
		GameSettings: GameSettings{
			Mode:      "组队竞速",
			StartMaps: []string{"绿色山谷"},
		},
		Crawl: CrawlSettings{
			BaseUrl:           ckfksc.DefaultBaseUrl,
			Workers:           crawl.DefaultWorkers,
			PageDelayMs:       int(crawl.DefaultPageDelay / time.Millisecond),
			TimeoutSeconds:    10,
			RequestsPerSecond: 10,
			Burst:             crawl.DefaultWorkers,
		},
		DataDir:     "data",
		HistoryKeep: 200,
	}
}

// Load layers the json5 file at path (and its .local override) over Default.
// A missing file is not an error, the defaults are returned as they are.
func Load(path string) (Config, error) {
	cfg := Default()
	err := configutil.Layer(path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file, using defaults", "path", path)
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) CrawlOptions() crawl.Options {
	return crawl.Options{
		GameType:  c.GameSettings.Mode,
		StartMap:  c.GameSettings.EndMap,
		StopMaps:  c.GameSettings.StartMaps,
		Workers:   c.Crawl.Workers,
		PageDelay: time.Duration(c.Crawl.PageDelayMs) * time.Millisecond,
	}
}

func (c Config) ClientOptions() ckfksc.ClientOptions {
	return ckfksc.ClientOptions{
		BaseUrl:           c.Crawl.BaseUrl,
		Timeout:           time.Duration(c.Crawl.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.Crawl.RequestsPerSecond,
		Burst:             c.Crawl.Burst,
		CloudflareBypass:  c.Crawl.CloudflareBypass,
	}
}

func (c Config) EngineOptions() report.EngineOptions {
	return report.EngineOptions{
		Substitutions: c.SubstitutionMap,
		Pages:         c.CustomPages,
		DefaultYear:   c.DefaultYear,
	}
}

func (c Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}
