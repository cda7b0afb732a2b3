package dummy

import (
	"context"
	"slices"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

func (s *Source) postLocked(feedID, postID uint64) (*source.Post, error) {
	fs, err := s.feedLocked(feedID)
	if err != nil {
		return nil, err
	}
	for _, p := range fs.posts {
		if p.ID == postID {
			return p, nil
		}
	}
	return nil, notFound("post", postID)
}

// AddPost appends a post to feedID, as a refresh would.
func (s *Source) AddPost(feedID uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, err := s.feedLocked(feedID)
	if err != nil {
		return 0, err
	}
	return s.addPostLocked(fs).ID, nil
}

// GetPost implements source.Source.
func (s *Source) GetPost(ctx context.Context, feedID, postID uint64) (*source.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.postLocked(feedID, postID)
	if err != nil {
		return nil, err
	}
	c := copyPosts([]*source.Post{p})[0]
	return &c, nil
}

// GetPosts implements source.Source.
func (s *Source) GetPosts(ctx context.Context, q source.PostQuery) (source.Page[source.Post], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var posts []source.Post
	for _, id := range sortedKeys(s.feeds) {
		posts = append(posts, copyPosts(s.feeds[id].posts)...)
	}
	return source.SelectPosts(posts, q), nil
}

// SetPostsReadStatus implements source.Source. Unknown posts are skipped.
func (s *Source) SetPostsReadStatus(ctx context.Context, read bool, ids []source.FeedPostID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if p, err := s.postLocked(id.FeedID, id.PostID); err == nil {
			p.IsRead = read
		}
	}
	return nil
}

// SetPostsFlagStatus implements source.Source. Gray is never stored as a flag.
func (s *Source) SetPostsFlagStatus(ctx context.Context, flagged bool, colors []source.FlagColor, ids []source.FeedPostID) error {
	for _, c := range colors {
		if !c.Valid() {
			return core.NewSourceError("set flag status", c.String()+" is not a flag color")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		p, err := s.postLocked(id.FeedID, id.PostID)
		if err != nil {
			continue
		}
		for _, c := range colors {
			if c == source.FlagGray {
				continue
			}
			has := p.HasFlag(c)
			switch {
			case flagged && !has:
				p.FlagColors = append(p.FlagColors, c)
			case !flagged && has:
				p.FlagColors = slices.DeleteFunc(p.FlagColors, func(fc source.FlagColor) bool { return fc == c })
			}
		}
		slices.Sort(p.FlagColors)
	}
	return nil
}

// GetUsedFlagColors implements source.Source.
func (s *Source) GetUsedFlagColors(ctx context.Context) ([]source.FlagColor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	used := map[source.FlagColor]bool{}
	for _, fs := range s.feeds {
		for _, p := range fs.posts {
			for _, c := range p.FlagColors {
				used[c] = true
			}
		}
	}
	var out []source.FlagColor
	for _, c := range source.FlagColors() {
		if used[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

// MarkAllRead implements source.Source.
func (s *Source) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, fs := range s.feeds {
		for _, p := range fs.posts {
			p.IsRead = true
		}
	}
	return nil
}
