package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tandemdrive/tandem/internal/storage/memory/export/v1"
	"github.com/tandemdrive/tandem/internal/util"
	"github.com/tandemdrive/tandem/pkg/core"
)

// FileName returns the export file name for a recording.
func FileName(rec core.Recording, compress bool) string {
	name := fmt.Sprintf("%s_%s.json", util.SafeFileName(rec.Session.Name), rec.Session.StartTime.Format("20060102_150405"))
	if compress {
		name += ".gz"
	}
	return name
}

// WriteFile writes rec in the v1 export format to dir and returns the file path.
func WriteFile(dir string, compress bool, rec core.Recording) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, FileName(rec, compress))
	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if compress {
		err = writeGzipJSON(f, v1.Build(rec))
	} else {
		err = json.NewEncoder(f).Encode(v1.Build(rec))
	}
	if err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return outputPath, f.Close()
}

// ReadFile decodes an export written by WriteFile.
func ReadFile(path string) (v1.Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return v1.Export{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return v1.Export{}, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export v1.Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return v1.Export{}, fmt.Errorf("failed to decode export: %w", err)
	}
	return export, nil
}

func writeGzipJSON(w io.Writer, data v1.Export) error {
	gzWriter := gzip.NewWriter(w)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
