package table

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for files whose extension no reader handles.
var ErrUnsupported = errors.New("unsupported file type")

// Reader turns a file into raw rows, header first.
type Reader interface {
	// Extensions lists lower-case extensions including the dot.
	Extensions() []string
	// Kind is the human name used in the success note ("CSV", "Excel").
	Kind() string
	Read(path string, opt Options) ([][]string, error)
}

var readers = map[string]Reader{}

// Register adds a reader for each of its extensions, replacing earlier ones.
func Register(r Reader) {
	for _, ext := range r.Extensions() {
		readers[strings.ToLower(ext)] = r
	}
}

// Supported reports whether path has an extension a reader handles.
func Supported(path string) bool {
	_, ok := readers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads path with default options. See LoadWith.
func Load(path string) (*Table, string, error) {
	return LoadWith(path, DefaultOptions())
}

// LoadWith picks a reader by case-insensitive extension and returns the
// table with a success note. On failure the table is nil.
func LoadWith(path string, opt Options) (*Table, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	r, ok := readers[ext]
	if !ok {
		if ext == "" {
			return nil, "", fmt.Errorf("%w: %q has no extension", ErrUnsupported, filepath.Base(path))
		}
		return nil, "", fmt.Errorf("%w %q", ErrUnsupported, ext)
	}
	rows, err := r.Read(path, opt)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	t, err := FromRecords(rows, opt)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return t, fmt.Sprintf("%s file loaded successfully.", r.Kind()), nil
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
	Register(xlsReader{})
}
