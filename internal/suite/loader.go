package suite

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
)

// SourceBuiltin marks suites compiled into the binary
const SourceBuiltin = "builtin"

//go:embed suites/*.yaml
var builtinFS embed.FS

// Builtin returns the suites compiled into the binary
func Builtin() (map[string]*Suite, error) {
	suites := make(map[string]*Suite)
	entries, err := builtinFS.ReadDir("suites")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		data, err := builtinFS.ReadFile("suites/" + entry.Name())
		if err != nil {
			return nil, err
		}
		s, err := Parse(entry.Name(), data)
		if err != nil {
			return nil, fmt.Errorf("builtin suite %s: %w", entry.Name(), err)
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		s.Source = SourceBuiltin
		suites[s.ID] = s
	}
	return suites, nil
}

// Loader loads suites from a directory on top of the builtin ones
type Loader struct {
	dir string
	log *logger.Logger
}

// NewLoader creates a loader. An empty dir loads only builtin suites.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, log: logger.Global().WithPrefix("suite")}
}

// Dir returns the directory suites are loaded from
func (l *Loader) Dir() string {
	return l.dir
}

func isSuiteFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadAll loads builtin suites and every suite file under the directory.
// Files that fail to load are logged and skipped; a directory suite may
// not reuse a builtin ID.
func (l *Loader) LoadAll() (map[string]*Suite, error) {
	suites, err := Builtin()
	if err != nil {
		return nil, err
	}
	if l.dir == "" {
		return suites, nil
	}
	if err := l.ValidateDirectory(); err != nil {
		return nil, err
	}

	err = filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isSuiteFile(d.Name()) {
			return nil
		}

		s, err := l.loadFile(path)
		if err != nil {
			l.log.Warn("failed to load suite from %s: %v", path, err)
			return nil
		}
		if existing, exists := suites[s.ID]; exists {
			l.log.Warn("duplicate suite ID %s in %s (already loaded from %s)", s.ID, path, existing.Source)
			return nil
		}
		suites[s.ID] = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk suite directory: %w", err)
	}

	return suites, nil
}

// Load returns the suite with the given ID
func (l *Loader) Load(id string) (*Suite, error) {
	suites, err := l.LoadAll()
	if err != nil {
		return nil, err
	}
	s, ok := suites[id]
	if !ok {
		return nil, fmt.Errorf("suite not found: %s", id)
	}
	return s, nil
}

// List returns all available suites sorted by ID
func (l *Loader) List() ([]*Suite, error) {
	suites, err := l.LoadAll()
	if err != nil {
		return nil, err
	}

	list := make([]*Suite, 0, len(suites))
	for _, s := range suites {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// loadFile loads a suite from a specific file. A suite without an ID
// takes the file name.
func (l *Loader) loadFile(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	s, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	if s.ID == "" {
		base := filepath.Base(path)
		s.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	s.Source = path

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateDirectory checks that the suite directory exists
func (l *Loader) ValidateDirectory() error {
	info, err := os.Stat(l.dir)
	if err != nil {
		return fmt.Errorf("suite directory does not exist: %s", l.dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("suite path is not a directory: %s", l.dir)
	}
	return nil
}
