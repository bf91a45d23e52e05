package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalGateway writes under a directory that the server exposes at /uploads.
type LocalGateway struct {
	root    string
	baseURL string
}

func NewLocalGateway(root, publicBaseURL string) (*LocalGateway, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &LocalGateway{root: root, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (g *LocalGateway) Root() string {
	return g.root
}

func (g *LocalGateway) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	path := filepath.Join(g.root, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating dir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", key, err)
	}
	return g.baseURL + "/uploads/" + filepath.ToSlash(clean), nil
}
