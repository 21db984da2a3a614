package sites

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/fortroute/internal/graph"
	"github.com/raphaelgruber/fortroute/internal/models"
)

// Format is the encoding of a site document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the document format from a file extension. ok is false for
// extensions that are not site documents.
func FormatFor(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	}
	return "", false
}

// Decode parses a site document. Unknown fields are rejected so typos in
// attribute names do not silently zero them.
func Decode(data []byte, format Format) (models.SiteDocument, error) {
	var doc models.SiteDocument
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return doc, fmt.Errorf("%w: decode json: %v", graph.ErrMalformedGraph, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return doc, fmt.Errorf("%w: decode yaml: %v", graph.ErrMalformedGraph, err)
		}
	default:
		return doc, fmt.Errorf("unsupported site format %q", format)
	}
	return doc, nil
}

// Parse decodes and validates a site document.
func Parse(data []byte, format Format) (*graph.Site, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return graph.New(doc)
}

// LoadFile reads and validates one site document from disk.
func LoadFile(path string) (*graph.Site, error) {
	format, ok := FormatFor(path)
	if !ok {
		return nil, fmt.Errorf("%s: not a site document (want .yaml, .yml or .json)", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site: %w", err)
	}
	site, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return site, nil
}
