package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"encoding/json"

	yaml "gopkg.in/yaml.v3"
)

// duration accepts "20s"-style strings in YAML and JSON config files.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	return d.parse(value.Value)
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = duration(v)
	return nil
}

// FileConfig is the single-file configuration schema. Nested sections map
// naturally to the flag namespace; explicit flags override file values.
type FileConfig struct {
	Search struct {
		Results int    `yaml:"results" json:"results"`
		File    string `yaml:"file" json:"file"`
	} `yaml:"search" json:"search"`

	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
		UA  string `yaml:"ua" json:"ua"`
	} `yaml:"searx" json:"searx"`

	Fetch struct {
		Count             int      `yaml:"count" json:"count"`
		MaxContentLength  int      `yaml:"maxContentLength" json:"maxContentLength"`
		MinContentLength  int      `yaml:"minContentLength" json:"minContentLength"`
		Timeout           duration `yaml:"timeout" json:"timeout"`
		Concurrency       int      `yaml:"concurrency" json:"concurrency"`
		FallbackOnBlocked bool     `yaml:"fallbackOnBlocked" json:"fallbackOnBlocked"`
	} `yaml:"fetch" json:"fetch"`

	Reader struct {
		URL      string   `yaml:"url" json:"url"`
		Interval duration `yaml:"interval" json:"interval"`
	} `yaml:"reader" json:"reader"`

	Extract struct {
		CoalesceCount int `yaml:"coalesceCount" json:"coalesceCount"`
		ShortLineLen  int `yaml:"shortLineLen" json:"shortLineLen"`
		JoinedLineCap int `yaml:"joinedLineCap" json:"joinedLineCap"`
	} `yaml:"extract" json:"extract"`

	Output struct {
		Format string `yaml:"format" json:"format"`
		Path   string `yaml:"path" json:"path"`
		Stream bool   `yaml:"stream" json:"stream"`
	} `yaml:"output" json:"output"`

	LLM struct {
		Base   string `yaml:"base" json:"base"`
		Model  string `yaml:"model" json:"model"`
		Key    string `yaml:"key" json:"key"`
		Digest bool   `yaml:"digest" json:"digest"`
	} `yaml:"llm" json:"llm"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		return fc, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return fc, nil
}

// Apply copies non-zero file values onto cfg. Callers layer explicitly-set
// flags on top afterwards.
func (fc FileConfig) Apply(cfg *Config) {
	if fc.Search.Results > 0 {
		cfg.SearchResults = fc.Search.Results
	}
	if fc.Search.File != "" {
		cfg.SearchFile = fc.Search.File
	}
	if fc.Searx.URL != "" {
		cfg.SearxURL = fc.Searx.URL
	}
	if fc.Searx.Key != "" {
		cfg.SearxKey = fc.Searx.Key
	}
	if fc.Searx.UA != "" {
		cfg.SearxUA = fc.Searx.UA
	}
	if fc.Fetch.Count > 0 {
		cfg.FetchCount = fc.Fetch.Count
	}
	if fc.Fetch.MaxContentLength > 0 {
		cfg.MaxContentLength = fc.Fetch.MaxContentLength
	}
	if fc.Fetch.MinContentLength > 0 {
		cfg.MinContentLength = fc.Fetch.MinContentLength
	}
	if fc.Fetch.Timeout > 0 {
		cfg.Timeout = time.Duration(fc.Fetch.Timeout)
	}
	if fc.Fetch.Concurrency > 0 {
		cfg.Concurrency = fc.Fetch.Concurrency
	}
	if fc.Fetch.FallbackOnBlocked {
		cfg.FallbackOnBlocked = true
	}
	if fc.Reader.URL != "" {
		cfg.ReaderURL = fc.Reader.URL
	}
	if fc.Reader.Interval > 0 {
		cfg.ReaderInterval = time.Duration(fc.Reader.Interval)
	}
	if fc.Extract.CoalesceCount > 0 {
		cfg.Extract.CoalesceCount = fc.Extract.CoalesceCount
	}
	if fc.Extract.ShortLineLen > 0 {
		cfg.Extract.ShortLineLen = fc.Extract.ShortLineLen
	}
	if fc.Extract.JoinedLineCap > 0 {
		cfg.Extract.JoinedLineCap = fc.Extract.JoinedLineCap
	}
	if fc.Output.Format != "" {
		cfg.Format = fc.Output.Format
	}
	if fc.Output.Path != "" {
		cfg.OutputPath = fc.Output.Path
	}
	if fc.Output.Stream {
		cfg.Stream = true
	}
	if fc.LLM.Base != "" {
		cfg.LLMBaseURL = fc.LLM.Base
	}
	if fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if fc.LLM.Key != "" {
		cfg.LLMAPIKey = fc.LLM.Key
	}
	if fc.LLM.Digest {
		cfg.Digest = true
	}
}
