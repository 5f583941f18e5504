package asset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteJSON encodes a as indented JSON.
func WriteJSON(w io.Writer, a *Asset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("asset: encode %s: %w", a.Name, err)
	}
	return nil
}

// WriteJSONFile writes a to path, creating parent directories.
func WriteJSONFile(path string, a *Asset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("asset: create dir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("asset: create %s: %w", path, err)
	}
	if err := WriteJSON(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
