package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// videoExts lists the container extensions considered ingestable.
var videoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".webm": true,
}

// Scan walks assetsDir and returns the video files underneath it,
// sorted by path. A missing directory is a run-level error.
func Scan(assetsDir string) ([]string, error) {
	info, err := os.Stat(assetsDir)
	if err != nil {
		return nil, fmt.Errorf("scan assets: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan assets: %s is not a directory", assetsDir)
	}

	var files []string
	err = filepath.WalkDir(assetsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if videoExts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan assets: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// DeriveTitle turns a file name into a readable title, the same way
// the library UI expects: stem with separators replaced by spaces.
func DeriveTitle(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.ReplaceAll(stem, "-", " ")
	return strings.Join(strings.Fields(stem), " ")
}
