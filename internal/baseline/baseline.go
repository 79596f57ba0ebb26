// Package baseline fetches the shipped content document. The baseline is
// always read before any override so the current field schema is known.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxBaselineBytes bounds how much of a remote baseline is read.
const maxBaselineBytes = 16 << 20

// Source yields the raw baseline document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Location() string
}

// Open picks an HTTP source for http(s) URLs and a file source otherwise.
func Open(location string, timeout time.Duration) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &HTTPSource{URL: location, Client: &http.Client{Timeout: timeout}}
	}
	return &FileSource{Path: location}
}

// FileSource reads the baseline from disk.
type FileSource struct {
	Path string
}

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}
	return data, nil
}

func (s *FileSource) Location() string { return s.Path }

// HTTPSource fetches the baseline with a single GET.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build baseline request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch baseline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch baseline: %s returned %s", s.URL, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBaselineBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read baseline body: %w", err)
	}
	if len(data) > maxBaselineBytes {
		return nil, fmt.Errorf("fetch baseline: body exceeds %d bytes", maxBaselineBytes)
	}
	return data, nil
}

func (s *HTTPSource) Location() string { return s.URL }

// Static serves a fixed document, e.g. an imported file already in memory.
type Static struct {
	Name string
	Data []byte
}

func (s *Static) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Data == nil {
		return nil, fmt.Errorf("baseline %s is empty", s.Name)
	}
	out := make([]byte, len(s.Data))
	copy(out, s.Data)
	return out, nil
}

func (s *Static) Location() string { return s.Name }

// ErrExists is returned by WriteStarter when the target exists and force is off.
var ErrExists = errors.New("baseline: file already exists")

// WriteStarter writes the starter document to path.
func WriteStarter(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	return os.WriteFile(path, Starter(), 0o644)
}
