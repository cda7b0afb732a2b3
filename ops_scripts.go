package feedagent

import (
	"context"
	"slices"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

// QueueGetScriptFolders lists the script folders of a source.
func (a *Agent) QueueGetScriptFolders(sourceID uint64, cb func(folders []source.ScriptFolder)) error {
	return fetch(a, sourceID, core.JobTypeScriptFoldersGet, func(ctx context.Context, src source.Source) ([]source.ScriptFolder, error) {
		return src.GetScriptFolders(ctx)
	}, cb)
}

// QueueAddScriptFolder creates a script folder.
func (a *Agent) QueueAddScriptFolder(sourceID uint64, title string, showTotal, showUnread bool, cb IDCallback) error {
	return fetch[uint64](a, sourceID, core.JobTypeScriptFolderAdd, func(ctx context.Context, src source.Source) (uint64, error) {
		return src.AddScriptFolder(ctx, title, showTotal, showUnread)
	}, cb)
}

// QueueUpdateScriptFolder changes the title and counters of a script folder.
func (a *Agent) QueueUpdateScriptFolder(sourceID, scriptFolderID uint64, title string, showTotal, showUnread bool, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeScriptFolderUpdate, func(ctx context.Context, src source.Source) error {
		return src.UpdateScriptFolder(ctx, scriptFolderID, title, showTotal, showUnread)
	}, cb)
}

// QueueRemoveScriptFolder deletes a script folder. Its posts are kept.
func (a *Agent) QueueRemoveScriptFolder(sourceID, scriptFolderID uint64, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeScriptFolderRemove, func(ctx context.Context, src source.Source) error {
		return src.RemoveScriptFolder(ctx, scriptFolderID)
	}, cb)
}

// QueueAssignPostsToScriptFolder adds posts to (assign) or removes them from
// a script folder.
func (a *Agent) QueueAssignPostsToScriptFolder(sourceID, scriptFolderID uint64, assign bool, ids []source.FeedPostID, cb DoneCallback) error {
	ids = slices.Clone(ids)
	return a.exec(sourceID, core.JobTypeScriptFolderAssignPosts, func(ctx context.Context, src source.Source) error {
		return src.AssignPostsToScriptFolder(ctx, scriptFolderID, assign, ids)
	}, cb)
}

// QueueGetScripts lists the scripts of a source.
func (a *Agent) QueueGetScripts(sourceID uint64, cb func(scripts []source.Script)) error {
	return fetch(a, sourceID, core.JobTypeScriptsGet, func(ctx context.Context, src source.Source) ([]source.Script, error) {
		return src.GetScripts(ctx)
	}, cb)
}

// QueueAddScript creates a script. script.ID is ignored.
func (a *Agent) QueueAddScript(sourceID uint64, script source.Script, cb IDCallback) error {
	script = cloneScript(script)
	return fetch[uint64](a, sourceID, core.JobTypeScriptAdd, func(ctx context.Context, src source.Source) (uint64, error) {
		return src.AddScript(ctx, script)
	}, cb)
}

// QueueUpdateScript replaces the script with id script.ID.
func (a *Agent) QueueUpdateScript(sourceID uint64, script source.Script, cb DoneCallback) error {
	script = cloneScript(script)
	return a.exec(sourceID, core.JobTypeScriptUpdate, func(ctx context.Context, src source.Source) error {
		return src.UpdateScript(ctx, script)
	}, cb)
}

// QueueRemoveScript deletes a script.
func (a *Agent) QueueRemoveScript(sourceID, scriptID uint64, cb DoneCallback) error {
	return a.exec(sourceID, core.JobTypeScriptRemove, func(ctx context.Context, src source.Source) error {
		return src.RemoveScript(ctx, scriptID)
	}, cb)
}

func cloneScript(s source.Script) source.Script {
	s.Events = slices.Clone(s.Events)
	s.FeedIDs = slices.Clone(s.FeedIDs)
	return s
}
