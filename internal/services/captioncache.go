package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dixit-toolbox/internal/deck"

	"github.com/sirupsen/logrus"
)

// CaptionCache is a read-through cache in front of a Captioner, persisted as a JSON object that
// maps card identifiers to captions. Static cards are captioned only once across games.
type CaptionCache struct {
	path    string
	inner   Captioner
	log     logrus.FieldLogger
	mu      sync.Mutex
	entries map[string]string
}

func NewCaptionCache(path string, inner Captioner, log logrus.FieldLogger) *CaptionCache {
	return &CaptionCache{
		path:    path,
		inner:   inner,
		log:     log,
		entries: make(map[string]string),
	}
}

// Load reads the cache file. A missing file is an empty cache.
func (c *CaptionCache) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading caption cache: %w", err)
	}
	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing caption cache %s: %w", c.path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range entries {
		c.entries[k] = v
	}
	c.log.Debugf("Loaded %d cached captions from %s.", len(entries), c.path)
	return nil
}

// Has reports whether card already has a caption.
func (c *CaptionCache) Has(card deck.Card) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[string(card)]
	return ok
}

func (c *CaptionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CaptionCache) Caption(ctx context.Context, card deck.Card) (string, error) {
	c.mu.Lock()
	caption, ok := c.entries[string(card)]
	c.mu.Unlock()
	if ok {
		return caption, nil
	}

	caption, err := c.inner.Caption(ctx, card)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[string(card)] = caption
	err = c.persistLocked()
	c.mu.Unlock()
	if err != nil {
		// The caption is still good for this process.
		c.log.Warnf("Could not persist caption cache: %v", err)
	}
	return caption, nil
}

// persistLocked rewrites the cache file atomically. Callers hold c.mu.
func (c *CaptionCache) persistLocked() error {
	if c.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(c.entries, "", "    ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
