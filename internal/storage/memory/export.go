package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OCAP2/awareness/internal/storage"
	v1 "github.com/OCAP2/awareness/internal/storage/memory/export/v1"
)

// exportJSON writes the session traces to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := v1.Build(&v1.SessionData{
		Session:    b.session,
		Selections: b.selections,
		Evictions:  b.evictions,
		Hurts:      b.hurts,
	})

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.session.Name)
	if name == "" {
		name = "session"
	}
	timestamp := b.session.StartedAt.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	write := writeJSON
	if b.cfg.CompressOutput {
		write = writeGzipJSON
	}
	if err := write(outputPath, export); err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMeta = storage.ExportMetadata{
		SessionName: b.session.Name,
		Scenario:    b.session.Scenario,
		Selections:  len(b.selections),
		Evictions:   len(b.evictions),
		Hurts:       len(b.hurts),
		Duration:    float64(export.EndTime) / 1000,
	}
	return nil
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
