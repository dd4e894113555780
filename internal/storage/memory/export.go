// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/teammap/teammap/pkg/core"
)

const exportPrefix = "teammap_"

// Export is the root JSON structure of a journal file
type Export struct {
	Session         core.Session                `json:"session"`
	ExportedAt      time.Time                   `json:"exportedAt"`
	Selections      []core.SelectionRecord      `json:"selections"`
	Classifications []core.ClassificationRecord `json:"classifications"`
	Overlays        []core.OverlayRecord        `json:"overlays"`
}

func (b *Backend) buildExport() Export {
	return Export{
		Session:         *b.session,
		ExportedAt:      time.Now().UTC(),
		Selections:      nonNil(b.selections),
		Classifications: nonNil(b.classifications),
		Overlays:        nonNil(b.overlays),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// exportJSON writes the session to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() (string, error) {
	export := b.buildExport()

	timestamp := b.session.StartedAt.UTC().Format("20060102_150405")
	filename := fmt.Sprintf("%s%s_%d.json", exportPrefix, timestamp, b.session.ID)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if b.cfg.CompressOutput {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		w = gz
	}

	if err := json.NewEncoder(w).Encode(export); err != nil {
		return "", fmt.Errorf("failed to encode journal: %w", err)
	}
	return outputPath, nil
}

// loadLatestExport reads the newest journal file in dir. Names sort by
// session start, so the lexically greatest file is the newest.
func loadLatestExport(dir string) (*Export, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", nil
		}
		return nil, "", err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, exportPrefix) {
			continue
		}
		if strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, "", nil
	}
	sort.Strings(names)
	path := filepath.Join(dir, names[len(names)-1])

	export, err := readExport(path)
	if err != nil {
		return nil, path, err
	}
	return export, path, nil
}

func readExport(path string) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return &export, nil
}
