package search

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// FileProvider loads search results from a local JSON file for offline and
// testing use. The file holds an array of objects:
// {"Title": "...", "URL": "...", "Snippet": "..."}.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

func (f *FileProvider) Search(_ context.Context, query string, limit int, emit func(Result) bool) error {
	if strings.TrimSpace(f.Path) == "" {
		return errors.New("file provider path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return err
	}
	var raw []Result
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	n := 0
	for _, r := range raw {
		if r.URL == "" || r.Title == "" {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(r.Title), q) && !strings.Contains(strings.ToLower(r.Snippet), q) {
			continue
		}
		r.Engine = f.Name()
		if !emit(r) {
			return nil
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return nil
}
