package source

import (
	"fmt"
	"strings"
	"time"
)

// FlagColor is one of the fixed post flag colors. Gray doubles as "no flag
// filter" in post queries.
type FlagColor uint8

const (
	FlagGray FlagColor = iota + 1
	FlagBlue
	FlagGreen
	FlagYellow
	FlagOrange
	FlagRed
	FlagPurple
)

var flagColorNames = map[FlagColor]string{
	FlagGray:   "gray",
	FlagBlue:   "blue",
	FlagGreen:  "green",
	FlagYellow: "yellow",
	FlagOrange: "orange",
	FlagRed:    "red",
	FlagPurple: "purple",
}

var flagColorRGB = map[FlagColor][3]uint8{
	FlagGray:   {158, 158, 158},
	FlagBlue:   {12, 147, 205},
	FlagGreen:  {135, 186, 35},
	FlagYellow: {251, 213, 55},
	FlagOrange: {235, 148, 95},
	FlagRed:    {224, 74, 104},
	FlagPurple: {152, 57, 154},
}

// FlagColors returns every flag color in display order.
func FlagColors() []FlagColor {
	return []FlagColor{FlagGray, FlagBlue, FlagGreen, FlagYellow, FlagOrange, FlagRed, FlagPurple}
}

func (c FlagColor) String() string {
	if name, ok := flagColorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("FlagColor(%d)", uint8(c))
}

// RGB returns the display color.
func (c FlagColor) RGB() (r, g, b uint8) {
	rgb := flagColorRGB[c]
	return rgb[0], rgb[1], rgb[2]
}

// Valid reports whether c is one of the defined colors.
func (c FlagColor) Valid() bool {
	_, ok := flagColorNames[c]
	return ok
}

// ParseFlagColor maps a color name to its FlagColor.
func ParseFlagColor(name string) (FlagColor, error) {
	for c, n := range flagColorNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown flag color %q", name)
}

// Feed is a subscription within a source.
type Feed struct {
	ID               uint64        `json:"id"`
	SourceID         uint64        `json:"sourceId"`
	FolderID         uint64        `json:"folderId"`
	URL              string        `json:"url"`
	Link             string        `json:"link,omitempty"`
	Title            string        `json:"title"`
	Description      string        `json:"description,omitempty"`
	SortOrder        uint64        `json:"sortOrder"`
	UnreadCount      uint64        `json:"unreadCount"`
	LastChecked      time.Time     `json:"lastChecked"`
	LastRefreshError string        `json:"lastRefreshError,omitempty"`
	RefreshInterval  time.Duration `json:"refreshInterval,omitempty"`
}

// FeedProperties holds the user-editable properties of a feed.
// Nil fields are left unchanged.
type FeedProperties struct {
	URL             *string
	Title           *string
	RefreshInterval *time.Duration
}

// Folder groups feeds and other folders. ParentID 0 is the source root.
type Folder struct {
	ID          uint64   `json:"id"`
	SourceID    uint64   `json:"sourceId"`
	ParentID    uint64   `json:"parentId"`
	Title       string   `json:"title"`
	SortOrder   uint64   `json:"sortOrder"`
	UnreadCount uint64   `json:"unreadCount"`
	FeedIDs     []uint64 `json:"feedIds,omitempty"`
	Subfolders  []Folder `json:"subfolders,omitempty"`
}

// Post is one item of a feed.
type Post struct {
	ID              uint64      `json:"id"`
	FeedID          uint64      `json:"feedId"`
	FeedTitle       string      `json:"feedTitle,omitempty"`
	Title           string      `json:"title"`
	Link            string      `json:"link"`
	Content         string      `json:"content,omitempty"`
	Author          string      `json:"author,omitempty"`
	Published       time.Time   `json:"published"`
	IsRead          bool        `json:"isRead"`
	FlagColors      []FlagColor `json:"flagColors,omitempty"`
	ScriptFolderIDs []uint64    `json:"scriptFolderIds,omitempty"`
}

// HasFlag reports whether the post carries color c.
func (p *Post) HasFlag(c FlagColor) bool {
	for _, fc := range p.FlagColors {
		if fc == c {
			return true
		}
	}
	return false
}

// FeedPostID addresses a post within its feed.
type FeedPostID struct {
	FeedID uint64 `json:"feedId"`
	PostID uint64 `json:"postId"`
}

// PostQuery selects a page of posts.
type PostQuery struct {
	PerPage        uint64
	Page           uint64 // 1-based
	ShowOnlyUnread bool
	SearchFilter   string
	// FlagColor restricts results to posts with that flag. FlagGray or 0
	// means no flag filter.
	FlagColor FlagColor
}

// Offset returns the index of the first item on the requested page.
func (q PostQuery) Offset() uint64 {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}

// LogLevel is the severity of a source log entry.
type LogLevel string

const (
	LogDebug   LogLevel = "debug"
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// Log is a source log entry, optionally tied to a feed.
type Log struct {
	ID        uint64    `json:"id"`
	FeedID    uint64    `json:"feedId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items []T    `json:"items"`
	Total uint64 `json:"total"`
}

// Paginate slices items according to perPage and the 1-based page number.
// perPage 0 returns everything.
func Paginate[T any](items []T, perPage, page uint64) Page[T] {
	total := uint64(len(items))
	if perPage == 0 {
		return Page[T]{Items: items, Total: total}
	}
	if page == 0 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= total {
		return Page[T]{Items: []T{}, Total: total}
	}
	end := min(start+perPage, total)
	return Page[T]{Items: items[start:end], Total: total}
}

// ScriptFolder is a user-defined collection that scripts assign posts to.
type ScriptFolder struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	ShowTotal   bool   `json:"showTotal"`
	ShowUnread  bool   `json:"showUnread"`
	TotalCount  uint64 `json:"totalCount"`
	UnreadCount uint64 `json:"unreadCount"`
}

// ScriptEvent names the moment a script runs.
type ScriptEvent string

const (
	ScriptEventNewPost    ScriptEvent = "newpost"
	ScriptEventUpdatePost ScriptEvent = "updatepost"
)

// Script is a user script run against incoming posts.
type Script struct {
	ID      uint64        `json:"id"`
	Title   string        `json:"title"`
	Type    string        `json:"type"`
	Enabled bool          `json:"enabled"`
	Events  []ScriptEvent `json:"events"`
	FeedIDs []uint64      `json:"feedIds,omitempty"`
	Script  string        `json:"script"`
}

// Status summarises a source.
type Status struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	LastError   string `json:"lastError,omitempty"`
	FeedCount   int    `json:"feedCount"`
	UnreadCount uint64 `json:"unreadCount"`
}

// Tree is the folder/feed hierarchy of a source.
type Tree struct {
	SourceID uint64   `json:"sourceId"`
	Title    string   `json:"title"`
	Folders  []Folder `json:"folders"`
	// Feeds holds every feed; feeds at the root have FolderID 0.
	Feeds []Feed `json:"feeds"`
}
