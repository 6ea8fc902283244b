// Package storage reports disk usage of the Suwayomi downloads directory.
package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Info describes the downloads directory and the file system holding it.
type Info struct {
	Path       string `json:"path"`
	MangaBytes uint64 `json:"manga_bytes"`
	TotalBytes uint64 `json:"total_bytes"`
	FreeBytes  uint64 `json:"free_bytes"` // available to unprivileged users
}

// ResolveDownloadsPath returns path when set, otherwise the server's default
// downloads directory under $XDG_DATA_HOME or ~/.local/share.
func ResolveDownloadsPath(path string) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(homeDir(), ".local", "share")
	}
	return filepath.Join(base, "Tachidesk", "downloads")
}

// Query measures the downloads directory. A missing directory counts as
// empty and the home directory's file system is reported instead.
func Query(path string) (Info, error) {
	path = ResolveDownloadsPath(path)
	info := Info{Path: path}

	statPath := homeDir()
	if _, err := os.Stat(path); err == nil {
		statPath = path
		info.MangaBytes = dirSize(path)
	}

	total, free, err := diskSpace(statPath)
	if err != nil {
		return info, err
	}
	info.TotalBytes = total
	info.FreeBytes = free
	return info, nil
}

// dirSize sums regular file sizes below root, skipping unreadable entries.
func dirSize(root string) uint64 {
	var total uint64
	filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if fi, err := d.Info(); err == nil {
				total += uint64(fi.Size())
			}
		}
		return nil
	})
	return total
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return string(filepath.Separator)
}
