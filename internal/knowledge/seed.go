package knowledge

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML seed format:
//
//	entries:
//	  - topic: Creative Commons
//	    kind: org
//	    aliases: [cc]
//	    summary: Nonprofit that publishes open copyright licenses.
//	    url: https://creativecommons.org
type seedFile struct {
	Entries []Entry `yaml:"entries"`
}

// ImportResult counts what an import changed.
type ImportResult struct {
	Added     int
	Unchanged int
	Failed    int
}

// ImportYAML upserts every entry of a YAML seed document.
func (s *Store) ImportYAML(r io.Reader, source string) (ImportResult, error) {
	var doc seedFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return ImportResult{}, fmt.Errorf("decode yaml: %w", err)
	}
	return s.importEntries(doc.Entries, source), nil
}

// ImportMarkdown turns each "## Heading" section into an entry whose
// topic is the heading and whose summary is the section body.
func (s *Store) ImportMarkdown(text, source string) ImportResult {
	return s.importEntries(SplitSections(text, KindDoc), source)
}

// ImportFile picks the importer by extension (.yaml/.yml or .md).
func (s *Store) ImportFile(path string) (ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	source := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return s.ImportYAML(strings.NewReader(string(data)), source)
	case ".md", ".markdown":
		return s.ImportMarkdown(string(data), source), nil
	default:
		return ImportResult{}, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func (s *Store) importEntries(entries []Entry, source string) ImportResult {
	var res ImportResult
	for _, e := range entries {
		if e.Source == "" {
			e.Source = source
		}
		changed, err := s.Upsert(e)
		switch {
		case err != nil:
			res.Failed++
			slog.Warn("knowledge import: skipped entry", "topic", e.Topic, "source", source, "error", err)
		case changed:
			res.Added++
		default:
			res.Unchanged++
		}
	}
	slog.Info("knowledge import done", "source", source, "added", res.Added, "unchanged", res.Unchanged, "failed", res.Failed)
	return res
}

// SplitSections splits markdown at level-2 headings. Text before the first
// heading is ignored.
func SplitSections(text, kind string) []Entry {
	var (
		entries []Entry
		topic   string
		body    strings.Builder
	)
	flush := func() {
		summary := strings.TrimSpace(body.String())
		if topic != "" && summary != "" {
			entries = append(entries, Entry{Topic: topic, Kind: kind, Summary: summary})
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			topic = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			continue
		}
		if topic == "" {
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(line)
	}
	flush()
	return entries
}
