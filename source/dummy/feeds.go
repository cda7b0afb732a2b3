package dummy

import (
	"context"
	"fmt"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

func (s *Source) addFeedLocked(url string, folderID uint64) uint64 {
	id := s.allocID()
	var sortOrder uint64
	for _, fs := range s.feeds {
		if fs.feed.FolderID == folderID && fs.feed.SortOrder >= sortOrder {
			sortOrder = fs.feed.SortOrder + 10
		}
	}
	s.feeds[id] = &feedState{feed: source.Feed{
		ID:        id,
		SourceID:  s.id,
		FolderID:  folderID,
		URL:       url,
		Title:     fmt.Sprintf("Feed %d", id),
		SortOrder: sortOrder,
	}}
	return id
}

func (s *Source) addPostLocked(fs *feedState) *source.Post {
	p := &source.Post{
		ID:        s.allocID(),
		FeedID:    fs.feed.ID,
		FeedTitle: fs.feed.Title,
		Published: s.now(),
	}
	p.Title = fmt.Sprintf("Post %d", p.ID)
	p.Link = fmt.Sprintf("%s#%d", fs.feed.URL, p.ID)
	p.Content = fmt.Sprintf("Content of post %d", p.ID)
	fs.posts = append(fs.posts, p)
	return p
}

func (s *Source) feedLocked(feedID uint64) (*feedState, error) {
	fs, ok := s.feeds[feedID]
	if !ok {
		return nil, notFound("feed", feedID)
	}
	return fs, nil
}

func (s *Source) feedCopyLocked(fs *feedState) source.Feed {
	f := fs.feed
	f.UnreadCount = unread(fs.posts)
	return f
}

// GetFeeds implements source.Source.
func (s *Source) GetFeeds(ctx context.Context) ([]source.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]source.Feed, 0, len(s.feeds))
	for _, id := range sortedKeys(s.feeds) {
		out = append(out, s.feedCopyLocked(s.feeds[id]))
	}
	return out, nil
}

// GetFeed implements source.Source.
func (s *Source) GetFeed(ctx context.Context, feedID uint64) (*source.Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fs, err := s.feedLocked(feedID)
	if err != nil {
		return nil, err
	}
	f := s.feedCopyLocked(fs)
	return &f, nil
}

// AddFeed implements source.Source.
func (s *Source) AddFeed(ctx context.Context, url string, folderID uint64) (uint64, error) {
	if url == "" {
		return 0, core.NewSourceError("add feed", "empty url")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if folderID != 0 {
		if _, ok := s.folders[folderID]; !ok {
			return 0, notFound("folder", folderID)
		}
	}
	for _, fs := range s.feeds {
		if fs.feed.URL == url {
			return 0, core.NewSourceError("add feed", fmt.Sprintf("already subscribed to %s", url))
		}
	}
	id := s.addFeedLocked(url, folderID)
	s.addLogLocked(source.LogInfo, id, "Subscribed to "+url)
	return id, nil
}

// MoveFeed implements source.Source.
func (s *Source) MoveFeed(ctx context.Context, feedID, newFolderID, sortOrder uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, err := s.feedLocked(feedID)
	if err != nil {
		return err
	}
	if newFolderID != 0 {
		if _, ok := s.folders[newFolderID]; !ok {
			return notFound("folder", newFolderID)
		}
	}
	fs.feed.FolderID = newFolderID
	fs.feed.SortOrder = sortOrder
	return nil
}

// RemoveFeed implements source.Source.
func (s *Source) RemoveFeed(ctx context.Context, feedID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.feedLocked(feedID); err != nil {
		return err
	}
	delete(s.feeds, feedID)
	delete(s.failures, feedID)
	delete(s.refreshes, feedID)
	return nil
}

// UpdateFeed implements source.Source.
func (s *Source) UpdateFeed(ctx context.Context, feedID uint64, props source.FeedProperties) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, err := s.feedLocked(feedID)
	if err != nil {
		return err
	}
	if props.URL != nil {
		if *props.URL == "" {
			return core.NewSourceError("update feed", "empty url")
		}
		fs.feed.URL = *props.URL
	}
	if props.Title != nil {
		fs.feed.Title = *props.Title
	}
	if props.RefreshInterval != nil {
		fs.feed.RefreshInterval = *props.RefreshInterval
	}
	return nil
}

// RefreshFeed implements source.Source. It waits for the configured latency,
// then either fails (see FailRefresh) or adds one new post.
func (s *Source) RefreshFeed(ctx context.Context, feedID uint64) (*source.Feed, error) {
	s.mu.RLock()
	_, err := s.feedLocked(feedID)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	if err := sleep(ctx, s.refreshLatency); err != nil {
		return nil, core.WrapSourceError("refresh feed", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fs, err := s.feedLocked(feedID)
	if err != nil {
		return nil, err
	}
	fs.feed.LastChecked = s.now()

	if msg, ok := s.failures[feedID]; ok {
		fs.feed.LastRefreshError = msg
		s.addLogLocked(source.LogError, feedID, msg)
		return nil, core.NewSourceError("refresh feed", msg)
	}

	fs.feed.LastRefreshError = ""
	p := s.addPostLocked(fs)
	s.refreshes[feedID]++
	s.addLogLocked(source.LogInfo, feedID, fmt.Sprintf("Refreshed feed, new post %d", p.ID))

	f := s.feedCopyLocked(fs)
	return &f, nil
}

// MarkFeedRead implements source.Source.
func (s *Source) MarkFeedRead(ctx context.Context, feedID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, err := s.feedLocked(feedID)
	if err != nil {
		return err
	}
	for _, p := range fs.posts {
		p.IsRead = true
	}
	return nil
}

// GetFeedPosts implements source.Source.
func (s *Source) GetFeedPosts(ctx context.Context, feedID uint64, q source.PostQuery) (source.Page[source.Post], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fs, err := s.feedLocked(feedID)
	if err != nil {
		return source.Page[source.Post]{}, err
	}
	return source.SelectPosts(copyPosts(fs.posts), q), nil
}

// GetFeedLogs implements source.Source.
func (s *Source) GetFeedLogs(ctx context.Context, feedID uint64, perPage, page uint64) (source.Page[source.Log], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.feedLocked(feedID); err != nil {
		return source.Page[source.Log]{}, err
	}
	return s.selectLogsLocked(func(l source.Log) bool { return l.FeedID == feedID }, perPage, page), nil
}

// GetFeedUnreadCount implements source.Source.
func (s *Source) GetFeedUnreadCount(ctx context.Context, feedID uint64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fs, err := s.feedLocked(feedID)
	if err != nil {
		return 0, err
	}
	return unread(fs.posts), nil
}

func copyPosts(posts []*source.Post) []source.Post {
	out := make([]source.Post, len(posts))
	for i, p := range posts {
		out[i] = *p
		out[i].FlagColors = append([]source.FlagColor(nil), p.FlagColors...)
		out[i].ScriptFolderIDs = append([]uint64(nil), p.ScriptFolderIDs...)
	}
	return out
}
