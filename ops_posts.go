package feedagent

import (
	"context"
	"slices"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

type postPage = source.Page[source.Post]

// QueueGetPost loads one post.
func (a *Agent) QueueGetPost(sourceID, feedID, postID uint64, cb func(post *source.Post)) error {
	return fetch(a, sourceID, core.JobTypePostGet, func(ctx context.Context, src source.Source) (*source.Post, error) {
		return src.GetPost(ctx, feedID, postID)
	}, cb)
}

// QueueGetFeedPosts loads a page of the posts of a feed.
func (a *Agent) QueueGetFeedPosts(sourceID, feedID uint64, q source.PostQuery, cb PostsCallback) error {
	return fetch[postPage](a, sourceID, core.JobTypeFeedGetPosts, func(ctx context.Context, src source.Source) (postPage, error) {
		return src.GetFeedPosts(ctx, feedID, q)
	}, cb)
}

// QueueGetFolderPosts loads a page of the posts of every feed below a folder.
func (a *Agent) QueueGetFolderPosts(sourceID, folderID uint64, q source.PostQuery, cb PostsCallback) error {
	return fetch[postPage](a, sourceID, core.JobTypeFolderGetPosts, func(ctx context.Context, src source.Source) (postPage, error) {
		return src.GetFolderPosts(ctx, folderID, q)
	}, cb)
}

// QueueGetSourcePosts loads a page of the posts of a whole source.
func (a *Agent) QueueGetSourcePosts(sourceID uint64, q source.PostQuery, cb PostsCallback) error {
	return fetch[postPage](a, sourceID, core.JobTypeSourceGetPosts, func(ctx context.Context, src source.Source) (postPage, error) {
		return src.GetPosts(ctx, q)
	}, cb)
}

// QueueGetScriptFolderPosts loads a page of the posts assigned to a script folder.
func (a *Agent) QueueGetScriptFolderPosts(sourceID, scriptFolderID uint64, q source.PostQuery, cb PostsCallback) error {
	return fetch[postPage](a, sourceID, core.JobTypeScriptFolderGetPosts, func(ctx context.Context, src source.Source) (postPage, error) {
		return src.GetScriptFolderPosts(ctx, scriptFolderID, q)
	}, cb)
}

// QueueMarkPostsRead marks posts as read.
func (a *Agent) QueueMarkPostsRead(sourceID uint64, ids []source.FeedPostID, cb DoneCallback) error {
	return a.setReadStatus(sourceID, core.JobTypePostsMarkRead, true, ids, cb)
}

// QueueMarkPostsUnread marks posts as unread.
func (a *Agent) QueueMarkPostsUnread(sourceID uint64, ids []source.FeedPostID, cb DoneCallback) error {
	return a.setReadStatus(sourceID, core.JobTypePostsMarkUnread, false, ids, cb)
}

func (a *Agent) setReadStatus(sourceID uint64, t core.JobType, read bool, ids []source.FeedPostID, cb DoneCallback) error {
	ids = slices.Clone(ids)
	return a.exec(sourceID, t, func(ctx context.Context, src source.Source) error {
		return src.SetPostsReadStatus(ctx, read, ids)
	}, cb)
}

// QueueMarkPostsFlagged adds the given flag colors to posts.
func (a *Agent) QueueMarkPostsFlagged(sourceID uint64, ids []source.FeedPostID, colors []source.FlagColor, cb DoneCallback) error {
	return a.setFlagStatus(sourceID, core.JobTypePostsMarkFlagged, true, ids, colors, cb)
}

// QueueMarkPostsUnflagged removes the given flag colors from posts.
func (a *Agent) QueueMarkPostsUnflagged(sourceID uint64, ids []source.FeedPostID, colors []source.FlagColor, cb DoneCallback) error {
	return a.setFlagStatus(sourceID, core.JobTypePostsMarkUnflagged, false, ids, colors, cb)
}

func (a *Agent) setFlagStatus(sourceID uint64, t core.JobType, flagged bool, ids []source.FeedPostID, colors []source.FlagColor, cb DoneCallback) error {
	ids = slices.Clone(ids)
	colors = slices.Clone(colors)
	return a.exec(sourceID, t, func(ctx context.Context, src source.Source) error {
		return src.SetPostsFlagStatus(ctx, flagged, colors, ids)
	}, cb)
}

// QueueGetUsedFlagColors lists the flag colors in use anywhere in a source.
func (a *Agent) QueueGetUsedFlagColors(sourceID uint64, cb func(colors []source.FlagColor)) error {
	return fetch(a, sourceID, core.JobTypeSourceGetUsedFlagColors, func(ctx context.Context, src source.Source) ([]source.FlagColor, error) {
		return src.GetUsedFlagColors(ctx)
	}, cb)
}
