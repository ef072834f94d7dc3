// Package ingest provides the external data integrations: the Alpha Vantage
// statement API with a file cache, the FRED risk-free rate series, and the
// Damodaran equity-risk-premium reference files.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
)

// minPayloadBytes guards against caching truncated or trivially empty
// responses.
const minPayloadBytes = 200

// JSONCache is a file-based cache keyed by (symbol, API function). One file
// per pair, named SYMBOL_FUNCTION.json.
type JSONCache struct {
	cacheDir string
}

// NewJSONCache creates a cache rooted at dir.
func NewJSONCache(dir string) *JSONCache {
	os.MkdirAll(dir, 0755)
	return &JSONCache{cacheDir: dir}
}

func (c *JSONCache) filePath(symbol, function string) string {
	if symbol == "" {
		symbol = "GLOBAL"
	}
	return filepath.Join(c.cacheDir, fmt.Sprintf("%s_%s.json", symbol, function))
}

// Get returns the cached payload, or nil if absent or below the minimum
// plausible size.
func (c *JSONCache) Get(symbol, function string) []byte {
	path := c.filePath(symbol, function)
	info, err := os.Stat(path)
	if err != nil || info.Size() <= minPayloadBytes {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

// Set stores a payload.
func (c *JSONCache) Set(symbol, function string, data []byte) error {
	return os.WriteFile(c.filePath(symbol, function), data, 0644)
}

// Has reports whether a usable cache entry exists.
func (c *JSONCache) Has(symbol, function string) bool {
	return c.Get(symbol, function) != nil
}

// Dir returns the cache directory.
func (c *JSONCache) Dir() string { return c.cacheDir }
