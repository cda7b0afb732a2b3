package feedagent

import (
	"context"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

type logPage = source.Page[source.Log]

// QueueGetSourceLogs loads a page of a source's log, newest first.
func (a *Agent) QueueGetSourceLogs(sourceID, perPage, page uint64, cb LogsCallback) error {
	return fetch[logPage](a, sourceID, core.JobTypeSourceGetLogs, func(ctx context.Context, src source.Source) (logPage, error) {
		return src.GetLogs(ctx, perPage, page)
	}, cb)
}

// QueueGetFolderLogs loads a page of the log entries of the feeds below a folder.
func (a *Agent) QueueGetFolderLogs(sourceID, folderID, perPage, page uint64, cb LogsCallback) error {
	return fetch[logPage](a, sourceID, core.JobTypeFolderGetLogs, func(ctx context.Context, src source.Source) (logPage, error) {
		return src.GetFolderLogs(ctx, folderID, perPage, page)
	}, cb)
}

// QueueGetFeedLogs loads a page of a feed's log entries.
func (a *Agent) QueueGetFeedLogs(sourceID, feedID, perPage, page uint64, cb LogsCallback) error {
	return fetch[logPage](a, sourceID, core.JobTypeFeedGetLogs, func(ctx context.Context, src source.Source) (logPage, error) {
		return src.GetFeedLogs(ctx, feedID, perPage, page)
	}, cb)
}

// QueueClearSourceLogs deletes a source's log.
func (a *Agent) QueueClearSourceLogs(sourceID uint64, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeSourceClearLogs, func(ctx context.Context, src source.Source) error {
		return src.ClearLogs(ctx)
	}, cb)
}
