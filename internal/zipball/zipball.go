package zipball

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"librarian/internal/contentid"
	"librarian/internal/metadata"
)

// Extension is the spool file extension for content bundles.
const Extension = ".zip"

// InfoFile is the metadata file every zipball must carry at its top level.
const InfoFile = "info.json"

// Validation failure reasons.
const (
	ReasonBadPath      = "bad_path"
	ReasonBadName      = "bad_name"
	ReasonBadMagic     = "bad_magic"
	ReasonBadStructure = "bad_structure"
	ReasonBadMetadata  = "bad_metadata"
)

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// ValidationError reports why a zipball was rejected.
type ValidationError struct {
	Path   string
	Reason string
	Detail string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("zipball %s: %s", e.Path, e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(path, reason, detail string, err error) error {
	return &ValidationError{Path: path, Reason: reason, Detail: detail, Err: err}
}

// ContentID derives the content id from a zipball path. Returns "" when the
// base name is not a well-formed <md5>.zip.
func ContentID(zipPath string) string {
	base := filepath.Base(zipPath)
	if !strings.HasSuffix(base, Extension) {
		return ""
	}
	id := strings.TrimSuffix(base, Extension)
	if !contentid.IsValid(id) {
		return ""
	}
	return id
}

// Validate runs the structural checks in order and returns the normalized
// metadata on success. Validation never writes to disk.
func Validate(zipPath string) (metadata.Meta, error) {
	if !strings.HasSuffix(zipPath, Extension) {
		return metadata.Meta{}, invalid(zipPath, ReasonBadPath, "extension is not .zip", nil)
	}
	id := ContentID(zipPath)
	if id == "" {
		return metadata.Meta{}, invalid(zipPath, ReasonBadName, "base name is not an MD5 hash", nil)
	}
	if err := checkMagic(zipPath); err != nil {
		return metadata.Meta{}, err
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return metadata.Meta{}, invalid(zipPath, ReasonBadMagic, "not a readable ZIP archive", err)
	}
	defer reader.Close()

	if len(reader.File) == 0 {
		return metadata.Meta{}, invalid(zipPath, ReasonBadStructure, "ZIP file is empty", nil)
	}

	prefix := id + "/"
	var infoEntry *zip.File
	for _, entry := range reader.File {
		name := entry.Name
		if !strings.HasPrefix(name, prefix) && name != id+"/" && name != id {
			return metadata.Meta{}, invalid(zipPath, ReasonBadStructure,
				fmt.Sprintf("entry %q is not rooted at %s/", name, id), nil)
		}
		if name == prefix+InfoFile {
			infoEntry = entry
		}
	}
	if infoEntry == nil {
		return metadata.Meta{}, invalid(zipPath, ReasonBadStructure, InfoFile+" missing", nil)
	}

	data, err := readEntry(infoEntry)
	if err != nil {
		return metadata.Meta{}, invalid(zipPath, ReasonBadStructure, "cannot read "+InfoFile, err)
	}
	meta, err := metadata.Parse(data)
	if err != nil {
		return metadata.Meta{}, invalid(zipPath, ReasonBadMetadata, err.Error(), err)
	}
	return meta, nil
}

// Extract unpacks a zipball beneath targetRoot at the content-addressed path.
// The previous tree, if any, remains fully present until the staged tree
// replaces it in a single rename.
func Extract(zipPath, targetRoot string) (string, error) {
	id := ContentID(zipPath)
	if id == "" {
		return "", invalid(zipPath, ReasonBadName, "base name is not an MD5 hash", nil)
	}
	dest, _ := contentid.ToPath(id, targetRoot)

	staging, err := os.MkdirTemp(targetRoot, ".extract-"+id+"-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	if err := extractInto(zipPath, id, staging); err != nil {
		_ = os.RemoveAll(staging)
		return "", err
	}

	backup := dest + ".backup"
	hadPrevious := false
	if _, err := os.Stat(dest); err == nil {
		if err := os.Rename(dest, backup); err != nil {
			_ = os.RemoveAll(staging)
			return "", fmt.Errorf("back up previous tree: %w", err)
		}
		hadPrevious = true
	} else if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		_ = os.RemoveAll(staging)
		return "", fmt.Errorf("create parent dirs: %w", err)
	}

	staged := filepath.Join(staging, id)
	if err := os.Rename(staged, dest); err != nil {
		_ = os.RemoveAll(staging)
		if hadPrevious {
			_ = os.Rename(backup, dest)
		}
		return "", fmt.Errorf("move staged tree into place: %w", err)
	}
	_ = os.RemoveAll(staging)
	if hadPrevious {
		_ = os.RemoveAll(backup)
	}
	return dest, nil
}

// Create repackages an extracted content tree into an in-memory zipball. The
// directory base name becomes the single top-level entry.
func Create(contentDir string) ([]byte, error) {
	id := filepath.Base(contentDir)
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	err := filepath.WalkDir(contentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(contentDir, p)
		if err != nil {
			return err
		}
		entry, err := writer.Create(path.Join(id, filepath.ToSlash(rel)))
		if err != nil {
			return err
		}
		file, err := os.Open(p)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(entry, file)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", contentDir, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize zipball: %w", err)
	}
	return buf.Bytes(), nil
}

// GetFile reads a single entry from a zipball without extracting it. The
// entry name is relative to the archive's top-level content directory.
func GetFile(zipPath, name string) ([]byte, error) {
	id := ContentID(zipPath)
	if id == "" {
		return nil, invalid(zipPath, ReasonBadName, "base name is not an MD5 hash", nil)
	}
	if err := checkMagic(zipPath); err != nil {
		return nil, err
	}
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, invalid(zipPath, ReasonBadMagic, "not a readable ZIP archive", err)
	}
	defer reader.Close()

	target := id + "/" + path.Clean(filepath.ToSlash(name))
	for _, entry := range reader.File {
		if entry.Name == target {
			return readEntry(entry)
		}
	}
	return nil, fmt.Errorf("zipball %s: entry %q not found", zipPath, name)
}

func checkMagic(zipPath string) error {
	file, err := os.Open(zipPath)
	if err != nil {
		return invalid(zipPath, ReasonBadPath, "cannot open file", err)
	}
	defer file.Close()

	header := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(file, header); err != nil {
		return invalid(zipPath, ReasonBadMagic, "file too short for ZIP header", err)
	}
	if !bytes.Equal(header, zipMagic) {
		return invalid(zipPath, ReasonBadMagic, "ZIP magic number missing", nil)
	}
	return nil
}

func extractInto(zipPath, id, staging string) error {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open zipball: %w", err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		name := filepath.FromSlash(path.Clean(entry.Name))
		if name == "." || strings.HasPrefix(name, "..") {
			return invalid(zipPath, ReasonBadStructure, fmt.Sprintf("entry %q escapes the archive", entry.Name), nil)
		}
		target := filepath.Join(staging, name)
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
		if err := writeEntry(entry, target); err != nil {
			return err
		}
	}

	if _, err := os.Stat(filepath.Join(staging, id)); err != nil {
		return invalid(zipPath, ReasonBadStructure, "archive did not produce the content directory", err)
	}
	return nil
}

func writeEntry(entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", entry.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return dst.Close()
}

func readEntry(entry *zip.File) ([]byte, error) {
	src, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}
