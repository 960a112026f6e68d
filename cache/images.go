// Package cache memoises generated statement images so repeated statement
// texts across passes do not cost another model call.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultSize = 256

// Images maps an image prompt to the data URL generated for it.
type Images struct {
	lru *lru.Cache[string, string]
}

func NewImages(size int) (*Images, error) {
	if size <= 0 {
		size = defaultSize
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("could not create image cache: %w", err)
	}
	return &Images{lru: c}, nil
}

func (c *Images) Get(prompt string) (string, bool) {
	return c.lru.Get(key(prompt))
}

func (c *Images) Add(prompt, url string) {
	if url == "" {
		return
	}
	c.lru.Add(key(prompt), url)
}

func (c *Images) Len() int {
	return c.lru.Len()
}

func key(prompt string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	return hex.EncodeToString(sum[:])
}
