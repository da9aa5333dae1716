// Package spool manages the download intake directory where fresh zipballs
// arrive from the tuner.
//
// The spool is plain filesystem state: discovery lists files by extension,
// aging removes files past the configured maximum age, and removal swallows
// OS errors, reporting success as a flag. A fsnotify watcher supplements the
// periodic poll so arrivals are ingested promptly.
package spool

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"librarian/internal/contentid"
)

// Download is a spooled file with its modification time.
type Download struct {
	Path  string
	MTime time.Time
}

// FindSigned lists spool files carrying the given extension.
func FindSigned(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// IsExpired reports whether mtime is older than maxAgeDays before now.
// maxAgeDays <= 0 disables aging.
func IsExpired(mtime time.Time, maxAgeDays int) bool {
	if maxAgeDays <= 0 {
		return false
	}
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	return mtime.Before(cutoff)
}

// Cleanup unlinks expired files and returns the survivors.
func Cleanup(files []string, maxAgeDays int) []string {
	var kept []string
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if IsExpired(info.ModTime(), maxAgeDays) {
			_ = os.Remove(path)
			continue
		}
		kept = append(kept, path)
	}
	return kept
}

// GetDownloads lists spooled files with the extension, oldest first.
func GetDownloads(dir, ext string) ([]Download, error) {
	files, err := FindSigned(dir, ext)
	if err != nil {
		return nil, err
	}
	return OrderDownloads(files), nil
}

// OrderDownloads pairs paths with modification times, ascending by mtime.
// Unreadable paths are dropped.
func OrderDownloads(paths []string) []Download {
	downloads := make([]Download, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		downloads = append(downloads, Download{Path: path, MTime: info.ModTime()})
	}
	sort.Slice(downloads, func(i, j int) bool {
		return downloads[i].MTime.Before(downloads[j].MTime)
	})
	return downloads
}

// SafeRemove unlinks path, swallowing OS errors. Reports whether the file is
// gone.
func SafeRemove(path string) bool {
	err := os.Remove(path)
	return err == nil || os.IsNotExist(err)
}

// RemoveDownloads removes spool files. When contentIDs are given only their
// derived file names are removed; otherwise every file with the extension
// goes. Returns the ids or paths whose removal failed.
func RemoveDownloads(dir, ext string, contentIDs ...string) []string {
	var failed []string
	if len(contentIDs) > 0 {
		for _, id := range contentIDs {
			if !contentid.IsValid(id) {
				failed = append(failed, id)
				continue
			}
			if !SafeRemove(filepath.Join(dir, id+ext)) {
				failed = append(failed, id)
			}
		}
		return failed
	}

	files, err := FindSigned(dir, ext)
	if err != nil {
		return nil
	}
	for _, path := range files {
		if !SafeRemove(path) {
			failed = append(failed, path)
		}
	}
	return failed
}
