package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bill_spider/internal/models"

	"dario.cat/mergo"
	"gopkg.in/yaml.v2"
)

type JurisdictionConfig struct {
	Name          string                              `yaml:"name"`
	SearchURL     string                              `yaml:"search_url"`
	FixedParams   map[string]string                   `yaml:"fixed_params"`
	InvalidMarker string                              `yaml:"invalid_marker"`
	Chambers      map[models.Chamber]models.BillRange `yaml:"chambers"`
	SessionLabels map[int]string                      `yaml:"session_labels"`
}

type CrawlConfig struct {
	Sessions       []int `yaml:"sessions"`
	Incremental    bool  `yaml:"incremental"`
	CurrentSession int   `yaml:"current_session"`
}

type LogicConfig struct {
	DelayMS            int    `yaml:"delay_ms"`
	PageLoadTimeoutSec int    `yaml:"page_load_timeout_sec"`
	RequestTimeoutSec  int    `yaml:"request_timeout_sec"`
	UserAgent          string `yaml:"user_agent"`
	RespectRobots      bool   `yaml:"respect_robots"`
}

type BrowserConfig struct {
	Bin      string `yaml:"bin"`
	Headless bool   `yaml:"headless"`
	// SettleMS is how long the rendered DOM must stay unchanged before it is read.
	SettleMS int    `yaml:"settle_ms"`
}

type OutputConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type DBConfig struct {
	Connection  string `yaml:"connection"`
	Database    string `yaml:"database"`
	Collections struct {
		Bills   string `yaml:"bills"`
		History string `yaml:"history"`
	} `yaml:"collections"`
}

type SpiderConfig struct {
	Jurisdiction JurisdictionConfig `yaml:"jurisdiction"`
	Crawl        CrawlConfig        `yaml:"crawl"`
	Logic        LogicConfig        `yaml:"logic"`
	Browser      BrowserConfig      `yaml:"browser"`
	Output       OutputConfig       `yaml:"output"`
	DB           DBConfig           `yaml:"db"`
}

type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

func Default() SpiderConfig {
	return SpiderConfig{
		Jurisdiction: JurisdictionConfig{
			Name:      "sc",
			SearchURL: "https://www.scstatehouse.gov/billsearch.php",
			FixedParams: map[string]string{
				"summary":      "B",
				"headerfooter": "1",
			},
			InvalidMarker: "INVALID BILL NUMBER",
			Chambers: map[models.Chamber]models.BillRange{
				models.Senate: models.DefaultRanges[models.Senate],
				models.House:  models.DefaultRanges[models.House],
			},
		},
		Logic: LogicConfig{
			DelayMS:            1000,
			PageLoadTimeoutSec: 60,
			RequestTimeoutSec:  30,
			UserAgent:          "Mozilla/5.0 (BillSpider/1.0)",
			RespectRobots:      true,
		},
		Browser: BrowserConfig{Headless: true, SettleMS: 1000},
		Output: OutputConfig{
			Driver: "json",
			Path:   "bills_info.json",
		},
	}
}

// LoadConfig reads path over the defaults, then merges <name>.local.<ext>
// next to it when present.
func LoadConfig(path string) (*SpiderConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	localPath := localName(path)
	localData, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if len(localData) > 0 {
		override, err := overlay(cfg, localData)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", localPath, err)
		}
		if err := mergo.Merge(&cfg, override, mergo.WithOverride, mergo.WithOverwriteWithEmptyValue); err != nil {
			return nil, fmt.Errorf("merge %s: %w", localPath, err)
		}
	}

	return &cfg, nil
}

// overlay decodes data on top of a deep copy of base. Keys absent from data
// keep the base value, keys set to false or 0 in data stay zero.
func overlay(base SpiderConfig, data []byte) (SpiderConfig, error) {
	var out SpiderConfig
	raw, err := yaml.Marshal(base)
	if err != nil {
		return out, err
	}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

func localName(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// Validate rejects configurations that would fail mid-run.
func (c *SpiderConfig) Validate() error {
	j := c.Jurisdiction
	if j.SearchURL == "" {
		return &ConfigurationError{Reason: "jurisdiction.search_url is empty"}
	}
	if j.InvalidMarker == "" {
		return &ConfigurationError{Reason: "jurisdiction.invalid_marker is empty"}
	}
	for _, ch := range models.Chambers {
		r, ok := j.Chambers[ch]
		if !ok {
			return &ConfigurationError{Reason: fmt.Sprintf("no bill range for chamber %s", ch)}
		}
		if r.First < 1 || r.Last < r.First {
			return &ConfigurationError{Reason: fmt.Sprintf("bad bill range %d..%d for chamber %s", r.First, r.Last, ch)}
		}
	}
	s, h := j.Chambers[models.Senate], j.Chambers[models.House]
	if s.Contains(h.First) || s.Contains(h.Last) || h.Contains(s.First) {
		return &ConfigurationError{Reason: "senate and house bill ranges overlap"}
	}

	if len(c.Crawl.Sessions) == 0 {
		return &ConfigurationError{Reason: "crawl.sessions is empty"}
	}
	var missing []string
	for _, id := range c.Crawl.Sessions {
		if _, ok := j.SessionLabels[id]; !ok {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &ConfigurationError{Reason: "no session label for session ids " + strings.Join(missing, ", ")}
	}

	if c.Crawl.Incremental {
		if len(c.Crawl.Sessions) != 1 || c.Crawl.Sessions[0] != c.Crawl.CurrentSession {
			return &ConfigurationError{Reason: fmt.Sprintf(
				"incremental mode needs sessions [%d] (current session), got %v",
				c.Crawl.CurrentSession, c.Crawl.Sessions)}
		}
	}

	if c.Logic.DelayMS < 0 || c.Logic.PageLoadTimeoutSec <= 0 {
		return &ConfigurationError{Reason: "logic.delay_ms must be >= 0 and logic.page_load_timeout_sec > 0"}
	}
	if c.Browser.SettleMS <= 0 {
		return &ConfigurationError{Reason: "browser.settle_ms must be > 0"}
	}

	switch c.Output.Driver {
	case "json", "sqlite":
		if c.Output.Path == "" {
			return &ConfigurationError{Reason: "output.path is empty"}
		}
	case "mongo":
		if c.DB.Connection == "" || c.DB.Database == "" {
			return &ConfigurationError{Reason: "db.connection and db.database are required for the mongo driver"}
		}
	default:
		return &ConfigurationError{Reason: fmt.Sprintf("unknown output.driver %q", c.Output.Driver)}
	}

	return nil
}

func (c *SpiderConfig) SessionLabel(id int) (string, error) {
	label, ok := c.Jurisdiction.SessionLabels[id]
	if !ok {
		return "", &ConfigurationError{Reason: fmt.Sprintf("no session label for session id %d", id)}
	}
	return label, nil
}
