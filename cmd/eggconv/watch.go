package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cogentcore.org/core/base/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"egg-transcoder/internal/batch"
)

// settle is how long a file must stay quiet before it is transcoded again.
const settle = 300 * time.Millisecond

func (c *cli) watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-transcode egg files under a directory when they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, args[0])
		},
	}
	cmd.Flags().StringVar(&c.flags.Mode, "mode", "", "auto, model or anim")
	return cmd
}

func (c *cli) runWatch(cmd *cobra.Command, inputDir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", inputDir, err)
	}

	bc := c.batchConfig(inputDir)
	fmt.Printf("Watching %s → %s\n", inputDir, bc.OutputDir)

	ctx := cmd.Context()
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create && isDir(event.Name):
				errors.Log(watcher.Add(event.Name))
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0 &&
				strings.EqualFold(filepath.Ext(event.Name), ".egg"):
				pending[event.Name] = time.Now()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			errors.Log(err)
		case now := <-ticker.C:
			for path, at := range pending {
				if now.Sub(at) < settle {
					continue
				}
				delete(pending, path)
				c.rebuild(bc, path)
			}
		}
	}
}

func (c *cli) rebuild(bc batch.Config, path string) {
	rel, err := filepath.Rel(bc.InputDir, path)
	if errors.Log(err) != nil {
		return
	}
	res := batch.ProcessFile(bc, filepath.ToSlash(rel))
	if !res.Success {
		c.logger.Error("transcode failed", "file", res.Input, "error", res.Error)
		return
	}
	c.logger.Info("transcoded", "file", res.Input, "output", res.Output,
		"meshes", res.Meshes, "clips", res.Clips, "advisories", res.Advisories)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
