// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tagselect implements the paginated multi-select tag list used by the
// product filter sidebar.
package tagselect

import (
	"context"
	"slices"
	"sync"

	"github.com/olegiv/ocms-storefront/internal/model"
)

// Lister fetches one page of tags. An empty cursor requests the first page.
type Lister interface {
	ListTags(ctx context.Context, cursor string, limit int) (model.Page[model.Tag], error)
}

// State is the fetch state of a Selector.
type State int

const (
	// Idle means no fetch is in flight.
	Idle State = iota
	// Loading means a page fetch is in flight.
	Loading
	// Failed means the last fetch failed; Retry re-issues it.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Selector holds the selected tag names and the tags loaded so far.
// It is safe for concurrent use; only one page fetch runs at a time.
type Selector struct {
	lister Lister
	limit  int

	mu         sync.Mutex
	state      State
	err        error
	selected   []string
	visible    []model.Tag
	pages      int
	nextCursor string
	hasMore    bool
	failed     string // cursor of the failed fetch
}

// New creates a Selector that fetches limit tags per page.
func New(lister Lister, limit int) *Selector {
	return &Selector{lister: lister, limit: limit}
}

// Selected returns a copy of the selected tag names in selection order.
func (s *Selector) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selected)
}

// SetSelected replaces the selection, typically from the decoded filter state.
func (s *Selector) SetSelected(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = slices.Clone(names)
}

// IsSelected reports whether name is selected.
func (s *Selector) IsSelected(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.selected, name)
}

// Toggle adds name to the end of the selection or removes it, and returns the
// resulting selection.
func (s *Selector) Toggle(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = Toggle(s.selected, name)
	return slices.Clone(s.selected)
}

// Toggle returns a new selection with name appended when absent, or with
// exactly that entry removed when present. The input is not modified.
func Toggle(selected []string, name string) []string {
	if i := slices.Index(selected, name); i >= 0 {
		return slices.Delete(slices.Clone(selected), i, i+1)
	}
	return append(slices.Clone(selected), name)
}

// Visible returns the tags loaded so far in page order.
func (s *Selector) Visible() []model.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.visible)
}

// HasMore reports whether another page can be fetched.
func (s *Selector) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Pages returns the number of pages loaded.
func (s *Selector) Pages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

// State returns the current fetch state.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error of the last failed fetch, or nil.
func (s *Selector) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Load fetches the first page unless one is already loaded.
func (s *Selector) Load(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.pages > 0
	s.mu.Unlock()
	if loaded {
		return nil
	}
	return s.fetch(ctx, "")
}

// FetchNext appends the next page. It is a no-op while a fetch is in flight
// or when there are no more pages.
func (s *Selector) FetchNext(ctx context.Context) error {
	s.mu.Lock()
	if s.pages == 0 {
		s.mu.Unlock()
		return s.Load(ctx)
	}
	if !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	cursor := s.nextCursor
	s.mu.Unlock()
	return s.fetch(ctx, cursor)
}

// Retry re-issues the fetch that failed. It does nothing unless the
// selector is in the Failed state.
func (s *Selector) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Failed {
		s.mu.Unlock()
		return nil
	}
	cursor := s.failed
	s.mu.Unlock()
	return s.fetch(ctx, cursor)
}

func (s *Selector) fetch(ctx context.Context, cursor string) error {
	s.mu.Lock()
	if s.state == Loading {
		s.mu.Unlock()
		return nil
	}
	prev := s.state
	s.state = Loading
	s.mu.Unlock()

	page, err := s.lister.ListTags(ctx, cursor, s.limit)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ctx.Err() != nil {
		// The caller went away; drop the result.
		s.state = prev
		return ctx.Err()
	}
	if err != nil {
		s.state = Failed
		s.err = err
		s.failed = cursor
		return err
	}

	for _, tag := range page.Docs {
		if !slices.ContainsFunc(s.visible, func(t model.Tag) bool { return t.ID == tag.ID }) {
			s.visible = append(s.visible, tag)
		}
	}
	s.pages++
	s.hasMore = len(page.Docs) > 0 && page.HasNextPage && page.NextCursor != ""
	s.nextCursor = page.NextCursor
	s.state = Idle
	s.err = nil
	s.failed = ""
	return nil
}
