// Package listview implements the shared shape of the collection pages:
// fetch the full collection once, filter and paginate locally, and apply
// mutations optimistically with rollback to the pre-mutation snapshot.
package listview

import (
	"context"
	"strings"
	"sync"
)

// Filter is a pure predicate over one list entry.
type Filter[T any] func(T) bool

// Search matches when the query, lowercased and trimmed, is a substring of
// any of the given fields. An empty query matches everything.
func Search[T any](query string, fields func(T) []string) Filter[T] {
	q := strings.ToLower(strings.TrimSpace(query))
	return func(item T) bool {
		if q == "" {
			return true
		}
		for _, field := range fields(item) {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
		return false
	}
}

// Exact matches when the wanted value equals the item's field, ignoring
// case. The sentinel "all" (or empty) matches everything.
func Exact[T any](want string, field func(T) string) Filter[T] {
	w := strings.ToLower(strings.TrimSpace(want))
	return func(item T) bool {
		if w == "" || w == "all" {
			return true
		}
		return strings.ToLower(field(item)) == w
	}
}

func Apply[T any](items []T, filters ...Filter[T]) []T {
	out := make([]T, 0, len(items))
next:
	for _, item := range items {
		for _, filter := range filters {
			if !filter(item) {
				continue next
			}
		}
		out = append(out, item)
	}
	return out
}

// Page is one window over a derived view.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Paginate clamps the requested page into [1, totalPages] and slices the
// derived view. totalPages is at least 1 even for an empty view.
func Paginate[T any](items []T, page int, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = 8
	}

	totalPages := (len(items) + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	return Page[T]{
		Items:      items[start:end],
		Page:       page,
		PerPage:    perPage,
		Total:      len(items),
		TotalPages: totalPages,
	}
}

// Cache holds one session's transient copy of a remote collection. The
// remote store owns the data; this copy exists so filtering, pagination
// and optimistic mutations run locally.
type Cache[T any] struct {
	mu     sync.Mutex
	items  []T
	loaded bool
	id     func(T) string
}

func NewCache[T any](id func(T) string) *Cache[T] {
	return &Cache[T]{id: id}
}

// Load fetches the collection on first use, or again when force is set.
func (c *Cache[T]) Load(ctx context.Context, fetch func(context.Context) ([]T, error), force bool) error {
	c.mu.Lock()
	if c.loaded && !force {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	items, err := fetch(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items = items
	c.loaded = true
	c.mu.Unlock()
	return nil
}

func (c *Cache[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Prepend splices a server-returned canonical object onto the front of the
// list, replacing any existing entry with the same identifier.
func (c *Cache[T]) Prepend(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.id(item)
	for i, existing := range c.items {
		if c.id(existing) == id {
			c.items[i] = item
			return
		}
	}

	c.items = append([]T{item}, c.items...)
}

// Replace swaps an existing entry for the server-returned canonical object.
// When the identifier is unknown the object is prepended instead.
func (c *Cache[T]) Replace(item T) {
	c.Prepend(item)
}

// Delete removes the entry optimistically, then issues the server call. On
// failure the exact pre-delete list is restored, order included.
func (c *Cache[T]) Delete(ctx context.Context, id string, call func(context.Context) error) error {
	c.mu.Lock()
	snapshot := make([]T, len(c.items))
	copy(snapshot, c.items)

	kept := c.items[:0:0]
	for _, item := range c.items {
		if c.id(item) != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
	c.mu.Unlock()

	if err := call(ctx); err != nil {
		c.mu.Lock()
		c.items = snapshot
		c.mu.Unlock()
		return err
	}

	return nil
}

// Patch applies a local mutation to the entry optimistically, then issues
// the server call, rolling back to the prior snapshot on failure.
func (c *Cache[T]) Patch(ctx context.Context, id string, apply func(*T), call func(context.Context) error) error {
	c.mu.Lock()
	snapshot := make([]T, len(c.items))
	copy(snapshot, c.items)

	for i := range c.items {
		if c.id(c.items[i]) == id {
			apply(&c.items[i])
			break
		}
	}
	c.mu.Unlock()

	if err := call(ctx); err != nil {
		c.mu.Lock()
		c.items = snapshot
		c.mu.Unlock()
		return err
	}

	return nil
}
