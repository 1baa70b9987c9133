package movedata

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"script-fighters/internal/game"
)

// ErrUnknownCharacter is returned when a character name has no table.
var ErrUnknownCharacter = errors.New("unknown character")

//go:embed characters/*.yaml
var builtinFS embed.FS

// Library holds character definitions by lowercase name.
type Library struct {
	chars    map[string]*game.CharacterDefinition
	warnings []error
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{chars: make(map[string]*game.CharacterDefinition)}
}

// LoadBuiltin loads the embedded roster.
func LoadBuiltin() (*Library, error) {
	lib := NewLibrary()
	entries, err := fs.ReadDir(builtinFS, "characters")
	if err != nil {
		return nil, fmt.Errorf("movedata: read builtin roster: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isSpecFile(e.Name()) {
			continue
		}
		data, err := builtinFS.ReadFile("characters/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("movedata: read %s: %w", e.Name(), err)
		}
		if err := lib.add(e.Name(), data); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Load returns the builtin roster overlaid with the tables at path, which may
// be a single YAML file or a directory of them. An empty path loads only the
// builtin roster.
func Load(path string) (*Library, error) {
	lib, err := LoadBuiltin()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return lib, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("movedata: stat %s: %w", path, err)
	}
	files := []string{path}
	if info.IsDir() {
		matches, err := filepath.Glob(filepath.Join(path, "*.y*ml"))
		if err != nil {
			return nil, fmt.Errorf("movedata: list %s: %w", path, err)
		}
		files = files[:0]
		for _, m := range matches {
			if isSpecFile(m) {
				files = append(files, m)
			}
		}
		sort.Strings(files)
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("movedata: read %s: %w", f, err)
		}
		if err := lib.add(f, data); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func (l *Library) add(source string, data []byte) error {
	file, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	def, err := file.Build()
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	if err := def.Validate(); err != nil {
		l.warnings = append(l.warnings, fmt.Errorf("%s: %w", source, err))
	}
	l.chars[strings.ToLower(def.Name)] = def
	return nil
}

// Get returns the definition for name.
func (l *Library) Get(name string) (*game.CharacterDefinition, error) {
	if def, ok := l.chars[strings.ToLower(name)]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCharacter, name)
}

// Names lists the loaded characters in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.chars))
	for n := range l.chars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Warnings returns validation problems found while loading. The tables are
// still usable; the engine falls back to defaults where data is missing.
func (l *Library) Warnings() []error { return l.warnings }

// Pair resolves the two fighters' tables.
func (l *Library) Pair(p1, p2 string) (*game.CharacterDefinition, *game.CharacterDefinition, error) {
	a, err := l.Get(p1)
	if err != nil {
		return nil, nil, err
	}
	b, err := l.Get(p2)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func isSpecFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
