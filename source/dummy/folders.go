package dummy

import (
	"context"
	"slices"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

func (s *Source) addFolderLocked(title string, parentID uint64) uint64 {
	id := s.allocID()
	var sortOrder uint64
	for _, f := range s.folders {
		if f.ParentID == parentID && f.SortOrder >= sortOrder {
			sortOrder = f.SortOrder + 10
		}
	}
	s.folders[id] = &source.Folder{
		ID:        id,
		SourceID:  s.id,
		ParentID:  parentID,
		Title:     title,
		SortOrder: sortOrder,
	}
	return id
}

func (s *Source) folderLocked(folderID uint64) (*source.Folder, error) {
	f, ok := s.folders[folderID]
	if !ok {
		return nil, notFound("folder", folderID)
	}
	return f, nil
}

// subtreeLocked returns folderID and the ids of all its descendants.
func (s *Source) subtreeLocked(folderID uint64) map[uint64]bool {
	tree := map[uint64]bool{folderID: true}
	for changed := true; changed; {
		changed = false
		for id, f := range s.folders {
			if !tree[id] && tree[f.ParentID] {
				tree[id] = true
				changed = true
			}
		}
	}
	return tree
}

func (s *Source) feedsInLocked(tree map[uint64]bool) []*feedState {
	var out []*feedState
	for _, id := range sortedKeys(s.feeds) {
		if fs := s.feeds[id]; tree[fs.feed.FolderID] {
			out = append(out, fs)
		}
	}
	return out
}

func (s *Source) folderCopyLocked(f *source.Folder) source.Folder {
	c := *f
	c.Subfolders = nil
	c.FeedIDs = nil
	c.UnreadCount = 0
	for _, id := range sortedKeys(s.feeds) {
		if s.feeds[id].feed.FolderID == f.ID {
			c.FeedIDs = append(c.FeedIDs, id)
		}
	}
	for _, fs := range s.feedsInLocked(s.subtreeLocked(f.ID)) {
		c.UnreadCount += unread(fs.posts)
	}
	return c
}

// GetFolders implements source.Source.
func (s *Source) GetFolders(ctx context.Context, parentID uint64) ([]source.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []source.Folder
	for _, id := range sortedKeys(s.folders) {
		if f := s.folders[id]; f.ParentID == parentID {
			out = append(out, s.folderCopyLocked(f))
		}
	}
	slices.SortStableFunc(out, func(a, b source.Folder) int {
		switch {
		case a.SortOrder < b.SortOrder:
			return -1
		case a.SortOrder > b.SortOrder:
			return 1
		}
		return 0
	})
	return out, nil
}

// GetFolder implements source.Source.
func (s *Source) GetFolder(ctx context.Context, folderID uint64) (*source.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.folderLocked(folderID)
	if err != nil {
		return nil, err
	}
	c := s.folderCopyLocked(f)
	return &c, nil
}

// AddFolder implements source.Source.
func (s *Source) AddFolder(ctx context.Context, title string, parentID uint64) (uint64, error) {
	if title == "" {
		return 0, core.NewSourceError("add folder", "empty title")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != 0 {
		if _, err := s.folderLocked(parentID); err != nil {
			return 0, err
		}
	}
	return s.addFolderLocked(title, parentID), nil
}

// MoveFolder implements source.Source.
func (s *Source) MoveFolder(ctx context.Context, folderID, newParentID, sortOrder uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.folderLocked(folderID)
	if err != nil {
		return err
	}
	if newParentID != 0 {
		if _, err := s.folderLocked(newParentID); err != nil {
			return err
		}
		if s.subtreeLocked(folderID)[newParentID] {
			return core.NewSourceError("move folder", "cannot move a folder into itself")
		}
	}
	f.ParentID = newParentID
	f.SortOrder = sortOrder
	return nil
}

// RemoveFolder implements source.Source. Subfolders and their feeds are
// removed too.
func (s *Source) RemoveFolder(ctx context.Context, folderID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.folderLocked(folderID); err != nil {
		return err
	}
	tree := s.subtreeLocked(folderID)
	for _, fs := range s.feedsInLocked(tree) {
		delete(s.feeds, fs.feed.ID)
	}
	for id := range tree {
		delete(s.folders, id)
	}
	return nil
}

// UpdateFolder implements source.Source.
func (s *Source) UpdateFolder(ctx context.Context, folderID uint64, title string) error {
	if title == "" {
		return core.NewSourceError("update folder", "empty title")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.folderLocked(folderID)
	if err != nil {
		return err
	}
	f.Title = title
	return nil
}

// MarkFolderRead implements source.Source.
func (s *Source) MarkFolderRead(ctx context.Context, folderID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.folderLocked(folderID); err != nil {
		return err
	}
	for _, fs := range s.feedsInLocked(s.subtreeLocked(folderID)) {
		for _, p := range fs.posts {
			p.IsRead = true
		}
	}
	return nil
}

// GetFolderPosts implements source.Source.
func (s *Source) GetFolderPosts(ctx context.Context, folderID uint64, q source.PostQuery) (source.Page[source.Post], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.folderLocked(folderID); err != nil {
		return source.Page[source.Post]{}, err
	}
	var posts []source.Post
	for _, fs := range s.feedsInLocked(s.subtreeLocked(folderID)) {
		posts = append(posts, copyPosts(fs.posts)...)
	}
	return source.SelectPosts(posts, q), nil
}

// GetFolderLogs implements source.Source.
func (s *Source) GetFolderLogs(ctx context.Context, folderID uint64, perPage, page uint64) (source.Page[source.Log], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.folderLocked(folderID); err != nil {
		return source.Page[source.Log]{}, err
	}
	feeds := map[uint64]bool{}
	for _, fs := range s.feedsInLocked(s.subtreeLocked(folderID)) {
		feeds[fs.feed.ID] = true
	}
	return s.selectLogsLocked(func(l source.Log) bool { return feeds[l.FeedID] }, perPage, page), nil
}

// GetFolderFeedIDs implements source.Source.
func (s *Source) GetFolderFeedIDs(ctx context.Context, folderID uint64) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.folderLocked(folderID); err != nil {
		return nil, err
	}
	var ids []uint64
	for _, fs := range s.feedsInLocked(s.subtreeLocked(folderID)) {
		ids = append(ids, fs.feed.ID)
	}
	return ids, nil
}
