package batch

import (
	"encoding/json"
	"os"
	"time"
)

// Manifest is the summary written next to the batch output.
type Manifest struct {
	Generated time.Time `json:"generated"`
	InputDir  string    `json:"input_dir"`
	OutputDir string    `json:"output_dir"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Files     []Result  `json:"files"`
}

// WriteManifest writes manifest.json to the output directory.
func WriteManifest(path string, cfg Config, results []Result) error {
	ok, failed := Summary(results)
	m := Manifest{
		Generated: time.Now().UTC(),
		InputDir:  cfg.InputDir,
		OutputDir: cfg.OutputDir,
		Succeeded: ok,
		Failed:    failed,
		Files:     results,
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
