// Package dummy provides an in-memory feed source. It backs the daemon's demo
// mode and the tests of the operation layer.
package dummy

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

// Type is the source type name registered with source.Registry.
const Type = "dummy"

type feedState struct {
	feed  source.Feed
	posts []*source.Post
}

// Source is an in-memory source.Source.
type Source struct {
	source.ErrorSlot

	id    uint64
	title string

	refreshLatency time.Duration
	now            func() time.Time

	mu            sync.RWMutex
	nextID        uint64
	feeds         map[uint64]*feedState
	folders       map[uint64]*source.Folder
	scriptFolders map[uint64]*source.ScriptFolder
	scripts       map[uint64]*source.Script
	logs          []source.Log
	failures      map[uint64]string
	refreshes     map[uint64]int
}

var _ source.Source = (*Source)(nil)

// Option configures a dummy Source.
type Option func(*Source)

// WithTitle sets the source title.
func WithTitle(title string) Option {
	return func(s *Source) { s.title = title }
}

// WithRefreshLatency makes every feed refresh take d (or until ctx is done).
func WithRefreshLatency(d time.Duration) Option {
	return func(s *Source) { s.refreshLatency = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// New creates an empty dummy source.
func New(id uint64, opts ...Option) *Source {
	s := &Source{
		id:            id,
		title:         fmt.Sprintf("Dummy source %d", id),
		now:           time.Now,
		nextID:        1,
		feeds:         make(map[uint64]*feedState),
		folders:       make(map[uint64]*source.Folder),
		scriptFolders: make(map[uint64]*source.ScriptFolder),
		scripts:       make(map[uint64]*source.Script),
		failures:      make(map[uint64]string),
		refreshes:     make(map[uint64]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Factory creates dummy sources from registry configuration. Recognised
// params: "folders", "feeds" (per folder), "posts" (per feed) and "latency"
// (a time.Duration string).
func Factory(cfg source.Config) (source.Source, error) {
	var opts []Option
	if cfg.Title != "" {
		opts = append(opts, WithTitle(cfg.Title))
	}
	if v, ok := cfg.Params["latency"]; ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("latency: %w", err)
		}
		opts = append(opts, WithRefreshLatency(d))
	}

	counts := [3]int{}
	for i, key := range []string{"folders", "feeds", "posts"} {
		v, ok := cfg.Params[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s: invalid count %q", key, v)
		}
		counts[i] = n
	}

	s := New(cfg.ID, opts...)
	s.Populate(counts[0], counts[1], counts[2])
	return s, nil
}

func (s *Source) ID() uint64    { return s.id }
func (s *Source) Title() string { return s.title }
func (s *Source) Type() string  { return Type }

// Populate creates folders folders at the root, feeds feeds in each of them
// (or at the root when folders is 0) and posts posts in every feed.
func (s *Source) Populate(folders, feeds, posts int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parents := []uint64{0}
	if folders > 0 {
		parents = parents[:0]
		for i := 0; i < folders; i++ {
			parents = append(parents, s.addFolderLocked(fmt.Sprintf("Folder %d", i+1), 0))
		}
	}
	for _, parent := range parents {
		for i := 0; i < feeds; i++ {
			fid := s.addFeedLocked(fmt.Sprintf("https://example.org/%d/feed-%d.xml", s.nextID, i+1), parent)
			for p := 0; p < posts; p++ {
				s.addPostLocked(s.feeds[fid])
			}
		}
	}
}

// FailRefresh makes every refresh of feedID fail with msg. An empty msg
// clears the failure.
func (s *Source) FailRefresh(feedID uint64, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg == "" {
		delete(s.failures, feedID)
		return
	}
	s.failures[feedID] = msg
}

// RefreshCount returns how many times feedID was refreshed successfully.
func (s *Source) RefreshCount(feedID uint64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshes[feedID]
}

func (s *Source) allocID() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Source) addLogLocked(level source.LogLevel, feedID uint64, msg string) {
	s.logs = append(s.logs, source.Log{
		ID:        s.allocID(),
		FeedID:    feedID,
		Timestamp: s.now(),
		Level:     level,
		Message:   msg,
	})
}

func notFound(kind string, id uint64) error {
	return fmt.Errorf("%s %d: %w", kind, id, source.ErrNotFound)
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Status implements source.Source.
func (s *Source) Status(ctx context.Context) (source.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := source.Status{
		ID:        s.id,
		Title:     s.title,
		Type:      Type,
		LastError: s.LastError(),
		FeedCount: len(s.feeds),
	}
	for _, fs := range s.feeds {
		st.UnreadCount += unread(fs.posts)
	}
	return st, nil
}

// GetLogs implements source.Source.
func (s *Source) GetLogs(ctx context.Context, perPage, page uint64) (source.Page[source.Log], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectLogsLocked(func(source.Log) bool { return true }, perPage, page), nil
}

// ClearLogs implements source.Source.
func (s *Source) ClearLogs(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = nil
	return nil
}

func (s *Source) selectLogsLocked(keep func(source.Log) bool, perPage, page uint64) source.Page[source.Log] {
	out := make([]source.Log, 0, len(s.logs))
	for i := len(s.logs) - 1; i >= 0; i-- {
		if keep(s.logs[i]) {
			out = append(out, s.logs[i])
		}
	}
	return source.Paginate(out, perPage, page)
}

func unread(posts []*source.Post) uint64 {
	var n uint64
	for _, p := range posts {
		if !p.IsRead {
			n++
		}
	}
	return n
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

var _ core.Source = (*Source)(nil)
