package scan

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
)

// ArchiveError reports bytes that could not be opened as a zip archive.
type ArchiveError struct {
	Err error
}

func (e *ArchiveError) Error() string { return "invalid archive: " + e.Err.Error() }
func (e *ArchiveError) Unwrap() error { return e.Err }

// DecodeError reports a single archive entry that could not be read as text.
// Extraction logs it and moves on.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Path, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// Extractor turns a zip archive into a FileMapping.
type Extractor struct {
	log *log.Logger
}

// NewExtractor returns an Extractor. A nil logger means log.Default().
func NewExtractor(logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{log: logger}
}

// ExtractArchive is a convenience wrapper using the default logger.
func ExtractArchive(data []byte) (*FileMapping, error) {
	return NewExtractor(nil).Extract(data)
}

// ExtractArchiveFile is ExtractFile with the default logger.
func ExtractArchiveFile(path string) (*FileMapping, error) {
	return NewExtractor(nil).ExtractFile(path)
}

// ExtractFile reads the archive at path and extracts it.
func (x *Extractor) ExtractFile(path string) (*FileMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return x.Extract(data)
}

// Extract walks every archive entry in order and keeps admissible text
// files. A zero-file result is not an error.
func (x *Extractor) Extract(data []byte) (*FileMapping, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ArchiveError{Err: err}
	}

	prefix := commonRoot(zr.File)
	out := NewFileMapping()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		rel := strings.TrimPrefix(strings.ReplaceAll(f.Name, "\\", "/"), prefix)
		if rel == "" || !IsAdmissiblePath(rel) {
			continue
		}
		if f.UncompressedSize64 > MaxFileBytes {
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			x.log.Printf("archive: skipping entry: %v", &DecodeError{Path: rel, Err: err})
			continue
		}
		if !IsAdmissibleContent(content) {
			continue
		}
		out.Set(rel, content)
	}
	return out, nil
}

func readEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return readText(rc)
}

func readText(r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxFileBytes+1))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", errNotUTF8
	}
	return string(raw), nil
}

// commonRoot returns "dir/" when every entry lives under the same top-level
// directory, as in GitHub's "Download ZIP" archives.
func commonRoot(files []*zip.File) string {
	root := ""
	for _, f := range files {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		i := strings.Index(name, "/")
		if i <= 0 {
			return ""
		}
		top := name[:i+1]
		if root == "" {
			root = top
			continue
		}
		if top != root {
			return ""
		}
	}
	// A shared ignored directory (node_modules/, .git/) is not a wrapper.
	if !IsAdmissiblePath(root + "x") {
		return ""
	}
	return root
}
