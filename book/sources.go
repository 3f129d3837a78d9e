package book

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"pkt.systems/mdfmt/mdparse"
)

// SourcesRequest configures FromSources.
type SourcesRequest struct {
	// Sources are file paths, file:// URLs or http(s):// URLs.
	Sources []string
	Title   string
	// Root is the include-file root; empty means the current directory.
	Root   string
	Client *http.Client
}

// FromSources builds a book with one numbered chapter per source.
func FromSources(ctx context.Context, req SourcesRequest) (*Book, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	root := req.Root
	if root == "" {
		root = "."
	}
	b := &Book{Title: req.Title, Root: root}
	for i, raw := range req.Sources {
		src, err := makeSource(raw)
		if err != nil {
			return nil, err
		}
		data, err := src.read(ctx, req.Client)
		if err != nil {
			return nil, fmt.Errorf("book: %s: %w", raw, err)
		}
		c, err := NewChapter("", src.path, data)
		if err != nil {
			return nil, err
		}
		c.Number = strconv.Itoa(i + 1)
		c.Source = src.location
		b.Chapters = append(b.Chapters, c)
	}
	return b, nil
}

type source struct {
	location string
	// path is the chapter path: the file name for URLs, the argument for
	// local files.
	path   string
	remote bool
}

func makeSource(raw string) (source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return source{}, fmt.Errorf("book: empty source")
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			name := path.Base(u.Path)
			if name == "." || name == "/" {
				name = "index.md"
			}
			return source{location: raw, path: name, remote: true}, nil
		case "file":
			p := u.Path
			if p == "" {
				p = u.Host
			}
			if unescaped, err := url.PathUnescape(p); err == nil {
				p = unescaped
			}
			return source{location: normalizePath(p), path: filepath.Base(p)}, nil
		}
	}
	return source{location: normalizePath(raw), path: filepath.Clean(raw)}, nil
}

func (s source) read(ctx context.Context, client *http.Client) ([]byte, error) {
	if !s.remote {
		f, err := os.Open(s.location)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return mdparse.ReadAll(f)
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.location, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %s", resp.Status)
	}
	return mdparse.ReadAll(resp.Body)
}

// ReadChapter reads a single chapter from r, as used for standard input.
func ReadChapter(r io.Reader, name, path string) (Chapter, error) {
	data, err := mdparse.ReadAll(r)
	if err != nil {
		return Chapter{}, fmt.Errorf("book: %s: %w", path, err)
	}
	return NewChapter(name, path, data)
}

func normalizePath(p string) string {
	if strings.HasPrefix(p, "~/") || p == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			if p == "~" {
				p = home
			} else {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	abs, err := filepath.Abs(p)
	if err == nil {
		return abs
	}
	return p
}
