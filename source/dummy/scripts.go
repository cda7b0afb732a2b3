package dummy

import (
	"context"
	"slices"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

func (s *Source) scriptFolderLocked(id uint64) (*source.ScriptFolder, error) {
	sf, ok := s.scriptFolders[id]
	if !ok {
		return nil, notFound("script folder", id)
	}
	return sf, nil
}

func (s *Source) scriptFolderPostsLocked(id uint64) []source.Post {
	var out []source.Post
	for _, fid := range sortedKeys(s.feeds) {
		for _, p := range s.feeds[fid].posts {
			if slices.Contains(p.ScriptFolderIDs, id) {
				out = append(out, copyPosts([]*source.Post{p})...)
			}
		}
	}
	return out
}

// GetScriptFolders implements source.Source.
func (s *Source) GetScriptFolders(ctx context.Context) ([]source.ScriptFolder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]source.ScriptFolder, 0, len(s.scriptFolders))
	for _, id := range sortedKeys(s.scriptFolders) {
		sf := *s.scriptFolders[id]
		posts := s.scriptFolderPostsLocked(id)
		sf.TotalCount = uint64(len(posts))
		sf.UnreadCount = 0
		for _, p := range posts {
			if !p.IsRead {
				sf.UnreadCount++
			}
		}
		out = append(out, sf)
	}
	return out, nil
}

// GetScriptFolderPosts implements source.Source.
func (s *Source) GetScriptFolderPosts(ctx context.Context, scriptFolderID uint64, q source.PostQuery) (source.Page[source.Post], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.scriptFolderLocked(scriptFolderID); err != nil {
		return source.Page[source.Post]{}, err
	}
	return source.SelectPosts(s.scriptFolderPostsLocked(scriptFolderID), q), nil
}

// AddScriptFolder implements source.Source.
func (s *Source) AddScriptFolder(ctx context.Context, title string, showTotal, showUnread bool) (uint64, error) {
	if title == "" {
		return 0, core.NewSourceError("add script folder", "empty title")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocID()
	s.scriptFolders[id] = &source.ScriptFolder{ID: id, Title: title, ShowTotal: showTotal, ShowUnread: showUnread}
	return id, nil
}

// UpdateScriptFolder implements source.Source.
func (s *Source) UpdateScriptFolder(ctx context.Context, scriptFolderID uint64, title string, showTotal, showUnread bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sf, err := s.scriptFolderLocked(scriptFolderID)
	if err != nil {
		return err
	}
	sf.Title = title
	sf.ShowTotal = showTotal
	sf.ShowUnread = showUnread
	return nil
}

// RemoveScriptFolder implements source.Source.
func (s *Source) RemoveScriptFolder(ctx context.Context, scriptFolderID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.scriptFolderLocked(scriptFolderID); err != nil {
		return err
	}
	delete(s.scriptFolders, scriptFolderID)
	for _, fs := range s.feeds {
		for _, p := range fs.posts {
			p.ScriptFolderIDs = slices.DeleteFunc(p.ScriptFolderIDs, func(id uint64) bool { return id == scriptFolderID })
		}
	}
	return nil
}

// AssignPostsToScriptFolder implements source.Source.
func (s *Source) AssignPostsToScriptFolder(ctx context.Context, scriptFolderID uint64, assign bool, ids []source.FeedPostID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.scriptFolderLocked(scriptFolderID); err != nil {
		return err
	}
	for _, id := range ids {
		p, err := s.postLocked(id.FeedID, id.PostID)
		if err != nil {
			continue
		}
		has := slices.Contains(p.ScriptFolderIDs, scriptFolderID)
		switch {
		case assign && !has:
			p.ScriptFolderIDs = append(p.ScriptFolderIDs, scriptFolderID)
		case !assign && has:
			p.ScriptFolderIDs = slices.DeleteFunc(p.ScriptFolderIDs, func(v uint64) bool { return v == scriptFolderID })
		}
	}
	return nil
}

// GetScripts implements source.Source.
func (s *Source) GetScripts(ctx context.Context) ([]source.Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]source.Script, 0, len(s.scripts))
	for _, id := range sortedKeys(s.scripts) {
		sc := *s.scripts[id]
		sc.Events = slices.Clone(sc.Events)
		sc.FeedIDs = slices.Clone(sc.FeedIDs)
		out = append(out, sc)
	}
	return out, nil
}

// AddScript implements source.Source. The id of script is ignored.
func (s *Source) AddScript(ctx context.Context, script source.Script) (uint64, error) {
	if script.Title == "" {
		return 0, core.NewSourceError("add script", "empty title")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	script.ID = s.allocID()
	s.scripts[script.ID] = &script
	return script.ID, nil
}

// UpdateScript implements source.Source.
func (s *Source) UpdateScript(ctx context.Context, script source.Script) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scripts[script.ID]; !ok {
		return notFound("script", script.ID)
	}
	s.scripts[script.ID] = &script
	return nil
}

// RemoveScript implements source.Source.
func (s *Source) RemoveScript(ctx context.Context, scriptID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scripts[scriptID]; !ok {
		return notFound("script", scriptID)
	}
	delete(s.scripts, scriptID)
	return nil
}
