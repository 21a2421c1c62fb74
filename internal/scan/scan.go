package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ScanDir is Extractor.ScanDir with the default logger.
func ScanDir(root string) (*FileMapping, error) {
	return NewExtractor(nil).ScanDir(root)
}

// ScanDir walks a local checkout in lexical order and keeps admissible text
// files, keyed by slash-separated paths relative to root. Ignored
// directories are not descended into.
func (x *Extractor) ScanDir(root string) (*FileMapping, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	out := NewFileMapping()
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			x.log.Printf("scan: skipping %s: %v", path, err)
			return nil
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if !IsAdmissiblePath(rel + "/x") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsAdmissiblePath(rel) {
			return nil
		}
		fi, err := d.Info()
		if err != nil || fi.Size() > MaxFileBytes {
			return nil
		}
		content, err := readTextFile(path)
		if err != nil {
			x.log.Printf("scan: skipping file: %v", &DecodeError{Path: rel, Err: err})
			return nil
		}
		if IsAdmissibleContent(content) {
			out.Set(rel, content)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return out, nil
}

func readTextFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return readText(f)
}

var errNotUTF8 = errors.New("not valid utf-8")
