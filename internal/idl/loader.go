package idl

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sltrerrors "github.com/lugondev/soltrace/internal/errors"
)

// LoadDir reads every *.json file directly under dir, parses it as a
// Document, and registers it keyed by the program ID found in its
// filename (stem, minus extension). Files that fail to parse are
// logged at warn and skipped rather than aborting the whole load.
//
// LoadDir does not recurse into subdirectories.
func LoadDir(dir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, sltrerrors.IdlLoad(dir, err)
	}

	reg := NewRegistry()
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		programID := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		doc, err := loadDocument(path)
		if err != nil {
			logger.Warn("skipping unparsable IDL file", "path", path, "err", err)
			continue
		}
		if doc.Address != "" {
			programID = doc.Address
		}

		if err := reg.Register(programID, *doc); err != nil {
			logger.Warn("skipping IDL file with invalid event table", "path", path, "program_id", programID, "err", err)
			continue
		}
		loaded++
		logger.Info("loaded IDL", "path", path, "program_id", programID, "events", len(doc.Events))
	}

	if loaded == 0 {
		logger.Warn("no IDL documents loaded", "dir", dir)
	}
	return reg, nil
}

func loadDocument(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return &doc, nil
}
