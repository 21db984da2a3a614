// Package sites holds the catalog of plannable sites: the built-in sample
// fort plus any documents found in a configured directory.
package sites

import (
	"cmp"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sync"

	"github.com/raphaelgruber/fortroute/internal/graph"
	"github.com/raphaelgruber/fortroute/internal/models"
)

// ErrSiteNotFound indicates an unknown site id.
var ErrSiteNotFound = errors.New("site not found")

//go:embed data/*.yaml
var builtin embed.FS

// Catalog is a read-mostly set of validated sites.
type Catalog struct {
	mu     sync.RWMutex
	sites  map[string]*graph.Site
	logger *slog.Logger
}

// NewCatalog loads the built-in sites and, if dir is non-empty, every site
// document in dir. A document in dir replaces a built-in site with the same
// id. Any malformed document fails the whole load.
func NewCatalog(dir string, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{sites: make(map[string]*graph.Site), logger: logger}

	if err := c.loadBuiltin(); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := c.loadDir(dir); err != nil {
			return nil, err
		}
	}

	logger.Debug("site catalog loaded", "sites", len(c.sites), "dir", dir)
	return c, nil
}

func (c *Catalog) loadBuiltin() error {
	entries, err := fs.ReadDir(builtin, "data")
	if err != nil {
		return fmt.Errorf("read built-in sites: %w", err)
	}
	for _, e := range entries {
		data, err := builtin.ReadFile(path.Join("data", e.Name()))
		if err != nil {
			return fmt.Errorf("read built-in site %s: %w", e.Name(), err)
		}
		site, err := Parse(data, FormatYAML)
		if err != nil {
			return fmt.Errorf("built-in site %s: %w", e.Name(), err)
		}
		c.sites[site.ID()] = site
	}
	return nil
}

func (c *Catalog) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read sites dir: %w", err)
	}

	fromDir := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := FormatFor(e.Name()); !ok {
			continue
		}
		file := filepath.Join(dir, e.Name())
		site, err := LoadFile(file)
		if err != nil {
			return err
		}
		if prev, dup := fromDir[site.ID()]; dup {
			return fmt.Errorf("%w: site %q defined in both %s and %s", graph.ErrMalformedGraph, site.ID(), prev, file)
		}
		fromDir[site.ID()] = file
		if _, exists := c.sites[site.ID()]; exists {
			c.logger.Info("site document overrides built-in site", "site", site.ID(), "file", file)
		}
		c.sites[site.ID()] = site
	}
	return nil
}

// Get returns the site with the given id.
func (c *Catalog) Get(id string) (*graph.Site, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	site, ok := c.sites[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, id)
	}
	return site, nil
}

// List returns summaries of every site, sorted by id.
func (c *Catalog) List() []models.SiteSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.SiteSummary, 0, len(c.sites))
	for _, s := range c.sites {
		out = append(out, s.Summary())
	}
	slices.SortFunc(out, func(a, b models.SiteSummary) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
