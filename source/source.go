// Package source defines the business contract of a feed source (a local
// database or a remote server account) and a registry that resolves sources
// by id for the dispatch engine.
package source

import (
	"context"
	"errors"

	"github.com/Swind/go-feed-agent/core"
)

// ErrNotFound is returned when a feed, folder, post, script or script folder
// does not exist within a source.
var ErrNotFound = errors.New("source: not found")

// Source is everything job bodies may ask of a source. Implementations must
// be safe for concurrent use.
type Source interface {
	core.Source

	Title() string
	Type() string

	// Feeds
	GetFeeds(ctx context.Context) ([]Feed, error)
	GetFeed(ctx context.Context, feedID uint64) (*Feed, error)
	AddFeed(ctx context.Context, url string, folderID uint64) (uint64, error)
	MoveFeed(ctx context.Context, feedID, newFolderID, sortOrder uint64) error
	RemoveFeed(ctx context.Context, feedID uint64) error
	UpdateFeed(ctx context.Context, feedID uint64, props FeedProperties) error
	RefreshFeed(ctx context.Context, feedID uint64) (*Feed, error)
	MarkFeedRead(ctx context.Context, feedID uint64) error
	GetFeedPosts(ctx context.Context, feedID uint64, q PostQuery) (Page[Post], error)
	GetFeedLogs(ctx context.Context, feedID uint64, perPage, page uint64) (Page[Log], error)
	GetFeedUnreadCount(ctx context.Context, feedID uint64) (uint64, error)

	// Folders
	GetFolders(ctx context.Context, parentID uint64) ([]Folder, error)
	GetFolder(ctx context.Context, folderID uint64) (*Folder, error)
	AddFolder(ctx context.Context, title string, parentID uint64) (uint64, error)
	MoveFolder(ctx context.Context, folderID, newParentID, sortOrder uint64) error
	RemoveFolder(ctx context.Context, folderID uint64) error
	UpdateFolder(ctx context.Context, folderID uint64, title string) error
	MarkFolderRead(ctx context.Context, folderID uint64) error
	GetFolderPosts(ctx context.Context, folderID uint64, q PostQuery) (Page[Post], error)
	GetFolderLogs(ctx context.Context, folderID uint64, perPage, page uint64) (Page[Log], error)
	// GetFolderFeedIDs returns the ids of every feed in the folder's subtree.
	GetFolderFeedIDs(ctx context.Context, folderID uint64) ([]uint64, error)

	// Posts and source-wide operations
	GetPost(ctx context.Context, feedID, postID uint64) (*Post, error)
	GetPosts(ctx context.Context, q PostQuery) (Page[Post], error)
	SetPostsReadStatus(ctx context.Context, read bool, ids []FeedPostID) error
	SetPostsFlagStatus(ctx context.Context, flagged bool, colors []FlagColor, ids []FeedPostID) error
	GetUsedFlagColors(ctx context.Context) ([]FlagColor, error)
	MarkAllRead(ctx context.Context) error
	GetLogs(ctx context.Context, perPage, page uint64) (Page[Log], error)
	ClearLogs(ctx context.Context) error
	// ImportOPML adds the feeds of an OPML document below parentFolderID and
	// returns the ids of the feeds it created.
	ImportOPML(ctx context.Context, opml string, parentFolderID uint64) ([]uint64, error)
	Status(ctx context.Context) (Status, error)

	// Script folders
	GetScriptFolders(ctx context.Context) ([]ScriptFolder, error)
	GetScriptFolderPosts(ctx context.Context, scriptFolderID uint64, q PostQuery) (Page[Post], error)
	AddScriptFolder(ctx context.Context, title string, showTotal, showUnread bool) (uint64, error)
	UpdateScriptFolder(ctx context.Context, scriptFolderID uint64, title string, showTotal, showUnread bool) error
	RemoveScriptFolder(ctx context.Context, scriptFolderID uint64) error
	AssignPostsToScriptFolder(ctx context.Context, scriptFolderID uint64, assign bool, ids []FeedPostID) error

	// Scripts
	GetScripts(ctx context.Context) ([]Script, error)
	AddScript(ctx context.Context, script Script) (uint64, error)
	UpdateScript(ctx context.Context, script Script) error
	RemoveScript(ctx context.Context, scriptID uint64) error
}

// BuildTree assembles the folder/feed hierarchy of src.
func BuildTree(ctx context.Context, src Source) (Tree, error) {
	feeds, err := src.GetFeeds(ctx)
	if err != nil {
		return Tree{}, err
	}
	folders, err := loadFolders(ctx, src, 0)
	if err != nil {
		return Tree{}, err
	}
	return Tree{
		SourceID: src.ID(),
		Title:    src.Title(),
		Folders:  folders,
		Feeds:    feeds,
	}, nil
}

func loadFolders(ctx context.Context, src Source, parentID uint64) ([]Folder, error) {
	folders, err := src.GetFolders(ctx, parentID)
	if err != nil {
		return nil, err
	}
	for i := range folders {
		sub, err := loadFolders(ctx, src, folders[i].ID)
		if err != nil {
			return nil, err
		}
		folders[i].Subfolders = sub
	}
	return folders, nil
}
