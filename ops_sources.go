package feedagent

import (
	"context"
	"errors"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

// QueueGetSourceTree loads the folder/feed hierarchy of a source.
func (a *Agent) QueueGetSourceTree(sourceID uint64, cb func(tree source.Tree)) error {
	return fetch(a, sourceID, core.JobTypeSourceGetTree, func(ctx context.Context, src source.Source) (source.Tree, error) {
		return source.BuildTree(ctx, src)
	}, cb)
}

// QueueGetAllSourceTrees queues a tree load for every known source. Pair it
// with QueueMonitorSourceReloadCompletion to learn when all have arrived.
func (a *Agent) QueueGetAllSourceTrees(cb func(tree source.Tree)) error {
	var errs []error
	for _, id := range a.dir.SourceIDs() {
		if err := a.QueueGetSourceTree(id, cb); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QueueMarkSourceRead marks every post of a source as read.
func (a *Agent) QueueMarkSourceRead(sourceID uint64, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeSourceMarkRead, func(ctx context.Context, src source.Source) error {
		return src.MarkAllRead(ctx)
	}, cb)
}

// QueueRefreshSource queues one feed refresh per feed of a source. cb is
// called once per feed as described for QueueRefreshFeed.
func (a *Agent) QueueRefreshSource(sourceID uint64, cb RefreshCallback) error {
	return a.run(sourceID, core.JobTypeSourceRefresh, func(ctx context.Context, src source.Source) error {
		feeds, err := src.GetFeeds(ctx)
		if err != nil {
			return err
		}
		return fanOut(a, feeds, func(f source.Feed) error {
			return a.QueueRefreshFeed(sourceID, f.ID, cb)
		})
	})
}

// QueueRefreshAllSources queues a source refresh for every known source.
func (a *Agent) QueueRefreshAllSources(cb RefreshCallback) error {
	var errs []error
	for _, id := range a.dir.SourceIDs() {
		if err := a.QueueRefreshSource(id, cb); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QueueImportOPML adds the feeds of an OPML document below parentFolderID.
// cb receives the ids of the created feeds.
func (a *Agent) QueueImportOPML(sourceID uint64, opml string, parentFolderID uint64, cb IDsCallback) error {
	return fetch[[]uint64](a, sourceID, core.JobTypeSourceImportOPML, func(ctx context.Context, src source.Source) ([]uint64, error) {
		return src.ImportOPML(ctx, opml, parentFolderID)
	}, cb)
}

// QueueGetSourceStatus loads a summary of a source.
func (a *Agent) QueueGetSourceStatus(sourceID uint64, cb func(status source.Status)) error {
	return fetch(a, sourceID, core.JobTypeSourceGetStatus, func(ctx context.Context, src source.Source) (source.Status, error) {
		return src.Status(ctx)
	}, cb)
}
