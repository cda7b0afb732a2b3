package feedagent

import (
	"context"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

// QueueAddFolder creates a folder below parentID (0 is the root).
func (a *Agent) QueueAddFolder(sourceID, parentID uint64, title string, cb IDCallback) error {
	return fetch[uint64](a, sourceID, core.JobTypeFolderAdd, func(ctx context.Context, src source.Source) (uint64, error) {
		return src.AddFolder(ctx, title, parentID)
	}, cb)
}

// QueueGetFolder loads one folder.
func (a *Agent) QueueGetFolder(sourceID, folderID uint64, cb func(folder *source.Folder)) error {
	return fetch(a, sourceID, core.JobTypeFolderGet, func(ctx context.Context, src source.Source) (*source.Folder, error) {
		return src.GetFolder(ctx, folderID)
	}, cb)
}

// QueueMoveFolder moves a folder to another parent and position.
func (a *Agent) QueueMoveFolder(sourceID, folderID, newParentID, sortOrder uint64, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeFolderMove, func(ctx context.Context, src source.Source) error {
		return src.MoveFolder(ctx, folderID, newParentID, sortOrder)
	}, cb)
}

// QueueRemoveFolder deletes a folder with its subfolders and feeds.
func (a *Agent) QueueRemoveFolder(sourceID, folderID uint64, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeFolderRemove, func(ctx context.Context, src source.Source) error {
		return src.RemoveFolder(ctx, folderID)
	}, cb)
}

// QueueUpdateFolder renames a folder.
func (a *Agent) QueueUpdateFolder(sourceID, folderID uint64, title string, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeFolderUpdate, func(ctx context.Context, src source.Source) error {
		return src.UpdateFolder(ctx, folderID, title)
	}, cb)
}

// QueueMarkFolderRead marks every post below a folder as read. cb receives
// the ids of the feeds that were affected.
func (a *Agent) QueueMarkFolderRead(sourceID, folderID uint64, cb IDsCallback) error {
	return fetch[[]uint64](a, sourceID, core.JobTypeFolderMarkRead, func(ctx context.Context, src source.Source) ([]uint64, error) {
		ids, err := src.GetFolderFeedIDs(ctx, folderID)
		if err != nil {
			return nil, err
		}
		if err := src.MarkFolderRead(ctx, folderID); err != nil {
			return nil, err
		}
		return ids, nil
	}, cb)
}

// QueueRefreshFolder queues one feed refresh per feed below a folder, so the
// feeds are refreshed concurrently. cb is called once per feed as described
// for QueueRefreshFeed.
func (a *Agent) QueueRefreshFolder(sourceID, folderID uint64, cb RefreshCallback) error {
	return a.run(sourceID, core.JobTypeFolderRefresh, func(ctx context.Context, src source.Source) error {
		ids, err := src.GetFolderFeedIDs(ctx, folderID)
		if err != nil {
			return err
		}
		return fanOut(a, ids, func(feedID uint64) error {
			return a.QueueRefreshFeed(sourceID, feedID, cb)
		})
	})
}
