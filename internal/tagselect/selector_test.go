// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package tagselect

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-storefront/internal/model"
)

// fakeLister serves tags "t1".."tN" in pages. Cursors are page numbers.
type fakeLister struct {
	total int
	calls atomic.Int32
	err   error
	block chan struct{} // when set, ListTags waits on it
	start chan struct{} // signalled when ListTags is entered

	mu      sync.Mutex
	cursors []string
}

func (f *fakeLister) ListTags(_ context.Context, cursor string, limit int) (model.Page[model.Tag], error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.cursors = append(f.cursors, cursor)
	f.mu.Unlock()
	if f.start != nil {
		f.start <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return model.Page[model.Tag]{}, f.err
	}

	page := 1
	if cursor != "" {
		page, _ = strconv.Atoi(cursor)
	}
	var out model.Page[model.Tag]
	for i := (page-1)*limit + 1; i <= f.total && i <= page*limit; i++ {
		id := strconv.Itoa(i)
		out.Docs = append(out.Docs, model.Tag{ID: id, Name: "t" + id})
	}
	out.TotalDocs = f.total
	if page*limit < f.total {
		out.HasNextPage = true
		out.NextCursor = strconv.Itoa(page + 1)
	}
	return out, nil
}

func names(tags []model.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

func TestToggle(t *testing.T) {
	s := New(&fakeLister{}, 2)
	s.SetSelected([]string{"a", "b", "c"})

	assert.Equal(t, []string{"a", "c"}, s.Toggle("b"), "removes exactly one entry")
	assert.Equal(t, []string{"a", "c", "b"}, s.Toggle("b"), "adds at the end")
	assert.True(t, s.IsSelected("b"))
}

func TestToggleTwiceRestoresSet(t *testing.T) {
	original := []string{"red", "green", "blue"}
	for _, name := range []string{"red", "green", "blue", "yellow"} {
		got := Toggle(Toggle(original, name), name)
		assert.ElementsMatch(t, original, got, "toggling %q twice", name)
	}
	assert.Equal(t, []string{"red", "green", "blue"}, original, "input must not be modified")
}

func TestPagination(t *testing.T) {
	lister := &fakeLister{total: 5}
	s := New(lister, 2)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx))
	assert.Equal(t, []string{"t1", "t2"}, names(s.Visible()))
	assert.True(t, s.HasMore())

	require.NoError(t, s.Load(ctx))
	assert.Equal(t, int32(1), lister.calls.Load(), "Load is a no-op once a page is loaded")

	require.NoError(t, s.FetchNext(ctx))
	require.NoError(t, s.FetchNext(ctx))
	assert.Equal(t, []string{"t1", "t2", "t3", "t4", "t5"}, names(s.Visible()))
	assert.False(t, s.HasMore())
	assert.Equal(t, 3, s.Pages())

	require.NoError(t, s.FetchNext(ctx))
	assert.Equal(t, int32(3), lister.calls.Load(), "no fetch past the last page")
}

func (f *fakeLister) cursorCount(cursor string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.cursors {
		if c == cursor {
			n++
		}
	}
	return n
}

func TestFetchNextWhileLoadingIsNoop(t *testing.T) {
	lister := &fakeLister{total: 10}
	s := New(lister, 2)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	// Hold the page 2 fetch inside the lister.
	lister.block = make(chan struct{})
	lister.start = make(chan struct{}, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.FetchNext(ctx))
	}()
	<-lister.start
	assert.Equal(t, Loading, s.State())

	second := make(chan error, 1)
	go func() { second <- s.FetchNext(ctx) }()
	select {
	case err := <-second:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("FetchNext during a fetch in flight must return immediately")
	}
	assert.Equal(t, 1, lister.cursorCount("2"), "page 2 is requested once")

	close(lister.block)
	wg.Wait()
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, names(s.Visible()))
	assert.Equal(t, 1, lister.cursorCount("2"))
	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestFailureKeepsLoadedPages(t *testing.T) {
	lister := &fakeLister{total: 6}
	s := New(lister, 2)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))
	s.SetSelected([]string{"t1"})

	boom := errors.New("backend unavailable")
	lister.err = boom
	err := s.FetchNext(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, s.State())
	assert.ErrorIs(t, s.Err(), boom)
	assert.Equal(t, []string{"t1", "t2"}, names(s.Visible()))

	assert.Equal(t, []string{"t1", "t2"}, s.Toggle("t2"), "loaded tags stay selectable")

	lister.err = nil
	require.NoError(t, s.Retry(ctx))
	assert.Equal(t, Idle, s.State())
	assert.NoError(t, s.Err())
	assert.Equal(t, []string{"t1", "t2", "t3", "t4"}, names(s.Visible()))
}

func TestRetryWithoutFailure(t *testing.T) {
	lister := &fakeLister{total: 4}
	s := New(lister, 2)
	require.NoError(t, s.Retry(context.Background()))
	assert.Equal(t, int32(0), lister.calls.Load())
}

func TestCancelledFetchIsDiscarded(t *testing.T) {
	lister := &fakeLister{total: 4}
	s := New(lister, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Visible())
	assert.Equal(t, Idle, s.State())
}
