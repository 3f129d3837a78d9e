package book

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ManifestNames are the file names Load looks for in a directory, in order.
var ManifestNames = []string{"book.toml", "book.yaml", "book.yml"}

// ErrNoManifest reports a directory without a book manifest.
var ErrNoManifest = errors.New("no book manifest")

type manifest struct {
	Title    string            `toml:"title" yaml:"title"`
	Src      string            `toml:"src" yaml:"src"`
	Chapters []manifestChapter `toml:"chapter" yaml:"chapters"`
}

type manifestChapter struct {
	Name     string            `toml:"name" yaml:"name"`
	Path     string            `toml:"path" yaml:"path"`
	Chapters []manifestChapter `toml:"chapter" yaml:"chapters"`
}

// Load reads a book from a manifest file, or from the first of
// ManifestNames found when path is a directory.
//
// A TOML manifest looks like:
//
//	title = "Guide"
//	src = "src"
//
//	[[chapter]]
//	name = "Intro"
//	path = "intro.md"
//
//	  [[chapter.chapter]]
//	  path = "intro/details.md"
//
// Chapter paths are relative to src, which defaults to "src" next to the
// manifest. Nested chapters are numbered "1.1", "1.2" and so on.
func Load(path string) (*Book, error) {
	file, err := findManifest(path)
	if err != nil {
		return nil, err
	}
	m, err := decodeManifest(file)
	if err != nil {
		return nil, err
	}
	src := m.Src
	if src == "" {
		src = "src"
	}
	root := src
	if !filepath.IsAbs(root) {
		root = filepath.Join(filepath.Dir(file), src)
	}
	b := &Book{Title: m.Title, Root: root}
	if err := b.addChapters(m.Chapters, ""); err != nil {
		return nil, err
	}
	return b, nil
}

func findManifest(path string) (string, error) {
	path = normalizePath(path)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("book: %w", err)
	}
	if !info.IsDir() {
		return path, nil
	}
	for _, name := range ManifestNames {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("book: %s: %w", path, ErrNoManifest)
}

func decodeManifest(file string) (manifest, error) {
	var m manifest
	switch strings.ToLower(filepath.Ext(file)) {
	case ".toml":
		if _, err := toml.DecodeFile(file, &m); err != nil {
			return manifest{}, fmt.Errorf("book: decode %s: %w", file, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(file)
		if err != nil {
			return manifest{}, fmt.Errorf("book: %w", err)
		}
		if err := yaml.Unmarshal(data, &m); err != nil {
			return manifest{}, fmt.Errorf("book: decode %s: %w", file, err)
		}
	default:
		return manifest{}, fmt.Errorf("book: %s: unsupported manifest format", file)
	}
	return m, nil
}

func (b *Book) addChapters(chapters []manifestChapter, prefix string) error {
	for i, mc := range chapters {
		number := prefix + strconv.Itoa(i+1)
		if mc.Path == "" {
			return fmt.Errorf("book: chapter %s %q has no path", number, mc.Name)
		}
		file := filepath.Join(b.Root, filepath.FromSlash(mc.Path))
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("book: chapter %s: %w", number, err)
		}
		c, err := NewChapter(mc.Name, mc.Path, data)
		if err != nil {
			return err
		}
		c.Number = number
		c.Source = file
		b.Chapters = append(b.Chapters, c)
		if err := b.addChapters(mc.Chapters, number+"."); err != nil {
			return err
		}
	}
	return nil
}
