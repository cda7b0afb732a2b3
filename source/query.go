package source

import (
	"sort"
	"strings"
)

// Matches reports whether p satisfies the filters of q (pagination aside).
func (q PostQuery) Matches(p *Post) bool {
	if q.ShowOnlyUnread && p.IsRead {
		return false
	}
	if q.FlagColor != 0 && q.FlagColor != FlagGray && !p.HasFlag(q.FlagColor) {
		return false
	}
	if q.SearchFilter != "" {
		needle := strings.ToLower(q.SearchFilter)
		if !strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Content), needle) {
			return false
		}
	}
	return true
}

// SelectPosts filters, orders (newest first) and paginates posts.
func SelectPosts(posts []Post, q PostQuery) Page[Post] {
	matched := make([]Post, 0, len(posts))
	for i := range posts {
		if q.Matches(&posts[i]) {
			matched = append(matched, posts[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].Published.Equal(matched[j].Published) {
			return matched[i].Published.After(matched[j].Published)
		}
		return matched[i].ID > matched[j].ID
	})
	return Paginate(matched, q.PerPage, q.Page)
}
