package feedagent

import (
	"context"
	"slices"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

// QueueSubscribeFeed adds a feed. When newFolders is not empty, that chain of
// folders is created below folderID first (existing folders with the same
// title are reused) and the feed goes into the last one. cb receives the id
// of the new feed.
func (a *Agent) QueueSubscribeFeed(sourceID uint64, url string, folderID uint64, newFolders []string, cb IDCallback) error {
	newFolders = slices.Clone(newFolders)
	return fetch[uint64](a, sourceID, core.JobTypeFeedAdd, func(ctx context.Context, src source.Source) (uint64, error) {
		parent, err := ensureFolderPath(ctx, src, folderID, newFolders)
		if err != nil {
			return 0, err
		}
		return src.AddFeed(ctx, url, parent)
	}, cb)
}

func ensureFolderPath(ctx context.Context, src source.Source, parentID uint64, titles []string) (uint64, error) {
	for _, title := range titles {
		children, err := src.GetFolders(ctx, parentID)
		if err != nil {
			return 0, err
		}
		idx := slices.IndexFunc(children, func(f source.Folder) bool { return f.Title == title })
		if idx >= 0 {
			parentID = children[idx].ID
			continue
		}
		if parentID, err = src.AddFolder(ctx, title, parentID); err != nil {
			return 0, err
		}
	}
	return parentID, nil
}

// QueueGetFeed loads one feed.
func (a *Agent) QueueGetFeed(sourceID, feedID uint64, cb FeedCallback) error {
	return fetch[*source.Feed](a, sourceID, core.JobTypeFeedGet, func(ctx context.Context, src source.Source) (*source.Feed, error) {
		return src.GetFeed(ctx, feedID)
	}, cb)
}

// QueueRefreshFeed fetches new posts of a feed. Unlike other operations cb is
// also called when the refresh fails, with a nil feed and the error, after the
// failure has been recorded on the source and broadcast.
func (a *Agent) QueueRefreshFeed(sourceID, feedID uint64, cb RefreshCallback) error {
	var opts []core.JobOption
	if cb != nil {
		opts = append(opts, core.WithErrorHook(func(ctx context.Context, _ core.Source, err error) {
			a.deliver(func() { cb(nil, err) })
		}))
	}
	return a.run(sourceID, core.JobTypeFeedRefresh, func(ctx context.Context, src source.Source) error {
		feed, err := src.RefreshFeed(ctx, feedID)
		if err != nil {
			return err
		}
		if cb != nil {
			a.deliver(func() { cb(feed, nil) })
		}
		return nil
	}, opts...)
}

// QueueRemoveFeed unsubscribes a feed.
func (a *Agent) QueueRemoveFeed(sourceID, feedID uint64, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeFeedRemove, func(ctx context.Context, src source.Source) error {
		return src.RemoveFeed(ctx, feedID)
	}, cb)
}

// QueueMoveFeed moves a feed to another folder and position.
func (a *Agent) QueueMoveFeed(sourceID, feedID, newFolderID, sortOrder uint64, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeFeedMove, func(ctx context.Context, src source.Source) error {
		return src.MoveFeed(ctx, feedID, newFolderID, sortOrder)
	}, cb)
}

// QueueMarkFeedRead marks every post of a feed as read.
func (a *Agent) QueueMarkFeedRead(sourceID, feedID uint64, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeFeedMarkRead, func(ctx context.Context, src source.Source) error {
		return src.MarkFeedRead(ctx, feedID)
	}, cb)
}

// QueueGetFeedUnreadCount counts the unread posts of a feed.
func (a *Agent) QueueGetFeedUnreadCount(sourceID, feedID uint64, cb func(count uint64)) error {
	return fetch(a, sourceID, core.JobTypeFeedGetUnreadCount, func(ctx context.Context, src source.Source) (uint64, error) {
		return src.GetFeedUnreadCount(ctx, feedID)
	}, cb)
}

// QueueSetFeedProperties updates the non-nil properties of a feed.
func (a *Agent) QueueSetFeedProperties(sourceID, feedID uint64, props source.FeedProperties, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeFeedSetProperties, func(ctx context.Context, src source.Source) error {
		return src.UpdateFeed(ctx, feedID, props)
	}, cb)
}
