package scan

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipItem struct {
	name string
	body []byte
}

func buildZip(t *testing.T, items ...zipItem) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, it := range items {
		w, err := zw.Create(it.name)
		require.NoError(t, err)
		if it.body != nil {
			_, err = w.Write(it.body)
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_KeepsOnlyAdmissibleText(t *testing.T) {
	data := buildZip(t,
		zipItem{name: "a.txt", body: []byte("hello")},
		zipItem{name: "img.png", body: []byte{0x89, 0x50, 0x4e, 0x47, 0x00, 0x00}},
		zipItem{name: "node_modules/x.js", body: []byte("ignored")},
	)

	files, err := ExtractArchive(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, files.Paths())
	got, ok := files.Get("a.txt")
	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestExtract_SkipsDirectoriesBinaryAndInvalidUTF8(t *testing.T) {
	data := buildZip(t,
		zipItem{name: "src/"},
		zipItem{name: "src/main.go", body: []byte("package main\n")},
		zipItem{name: "src/blob.dat", body: bytes.Repeat([]byte{0x01}, 64)},
		zipItem{name: "src/latin1.txt", body: []byte{0x63, 0x61, 0x66, 0xe9}},
		zipItem{name: "empty.md", body: []byte{}},
		zipItem{name: "docs/guide.md", body: []byte("# Guide\n")},
	)

	files, err := ExtractArchive(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.go", "docs/guide.md"}, files.Paths())
}

func TestExtract_StripsSharedTopLevelDirectory(t *testing.T) {
	data := buildZip(t,
		zipItem{name: "project-main/"},
		zipItem{name: "project-main/README.md", body: []byte("# Project")},
		zipItem{name: "project-main/cmd/app/main.go", body: []byte("package main")},
	)

	files, err := ExtractArchive(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "cmd/app/main.go"}, files.Paths())
}

func TestExtract_IgnoredTopLevelDirectoryIsNotStripped(t *testing.T) {
	data := buildZip(t,
		zipItem{name: "node_modules/a.js", body: []byte("a")},
		zipItem{name: "node_modules/b.js", body: []byte("b")},
	)
	files, err := ExtractArchive(data)
	require.NoError(t, err)
	assert.Equal(t, 0, files.Len())
}

func TestExtract_InvalidArchive(t *testing.T) {
	_, err := ExtractArchive([]byte("definitely not a zip"))
	require.Error(t, err)
	var archiveErr *ArchiveError
	assert.ErrorAs(t, err, &archiveErr)
}

func TestExtract_EmptyResultIsNotAnError(t *testing.T) {
	data := buildZip(t, zipItem{name: "logo.svg", body: []byte("<svg/>")})
	files, err := ExtractArchive(data)
	require.NoError(t, err)
	assert.Equal(t, 0, files.Len())
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.zip")
	require.NoError(t, os.WriteFile(path, buildZip(t, zipItem{name: "main.py", body: []byte("print(1)")}), 0o644))

	files, err := NewExtractor(nil).ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, files.Len())
}

func TestFileMapping_OverwriteKeepsFirstPosition(t *testing.T) {
	m := NewFileMapping()
	m.Set("b.go", "1")
	m.Set("a.go", "2")
	m.Set("b.go", "3")

	assert.Equal(t, []string{"b.go", "a.go"}, m.Paths())
	assert.Equal(t, []string{"a.go", "b.go"}, m.SortedPaths())
	got, _ := m.Get("b.go")
	assert.Equal(t, "3", got)
}
