package core

// JobType tags a job with the operation it performs. The dispatcher never
// branches on it; it exists for counting (TotalCountOfType), logging and
// metrics labels.
type JobType int

const (
	JobTypeUnspecified JobType = iota

	JobTypeFeedAdd
	JobTypeFeedGet
	JobTypeFeedGetLogs
	JobTypeFeedGetPosts
	JobTypeFeedGetUnreadCount
	JobTypeFeedMarkRead
	JobTypeFeedMove
	JobTypeFeedRefresh
	JobTypeFeedRemove
	JobTypeFeedSetProperties

	JobTypeFolderAdd
	JobTypeFolderGet
	JobTypeFolderGetLogs
	JobTypeFolderGetPosts
	JobTypeFolderMarkRead
	JobTypeFolderMove
	JobTypeFolderRefresh
	JobTypeFolderRemove
	JobTypeFolderUpdate

	JobTypeMonitorFeedRefreshCompletion
	JobTypeMonitorSourceReloadCompletion

	JobTypePostGet
	JobTypePostsMarkFlagged
	JobTypePostsMarkRead
	JobTypePostsMarkUnflagged
	JobTypePostsMarkUnread

	JobTypeScriptFolderAdd
	JobTypeScriptFolderAssignPosts
	JobTypeScriptFolderGetPosts
	JobTypeScriptFolderRemove
	JobTypeScriptFoldersGet
	JobTypeScriptFolderUpdate

	JobTypeScriptAdd
	JobTypeScriptRemove
	JobTypeScriptsGet
	JobTypeScriptUpdate

	JobTypeSourceClearLogs
	JobTypeSourceGetLogs
	JobTypeSourceGetPosts
	JobTypeSourceGetStatus
	JobTypeSourceGetTree
	JobTypeSourceGetUsedFlagColors
	JobTypeSourceImportOPML
	JobTypeSourceMarkRead
	JobTypeSourceRefresh

	jobTypeCount
)

var jobTypeNames = [jobTypeCount]string{
	JobTypeUnspecified: "Unspecified",

	JobTypeFeedAdd:            "FeedAdd",
	JobTypeFeedGet:            "FeedGet",
	JobTypeFeedGetLogs:        "FeedGetLogs",
	JobTypeFeedGetPosts:       "FeedGetPosts",
	JobTypeFeedGetUnreadCount: "FeedGetUnreadCount",
	JobTypeFeedMarkRead:       "FeedMarkRead",
	JobTypeFeedMove:           "FeedMove",
	JobTypeFeedRefresh:        "FeedRefresh",
	JobTypeFeedRemove:         "FeedRemove",
	JobTypeFeedSetProperties:  "FeedSetProperties",

	JobTypeFolderAdd:      "FolderAdd",
	JobTypeFolderGet:      "FolderGet",
	JobTypeFolderGetLogs:  "FolderGetLogs",
	JobTypeFolderGetPosts: "FolderGetPosts",
	JobTypeFolderMarkRead: "FolderMarkRead",
	JobTypeFolderMove:     "FolderMove",
	JobTypeFolderRefresh:  "FolderRefresh",
	JobTypeFolderRemove:   "FolderRemove",
	JobTypeFolderUpdate:   "FolderUpdate",

	JobTypeMonitorFeedRefreshCompletion:  "MonitorFeedRefreshCompletion",
	JobTypeMonitorSourceReloadCompletion: "MonitorSourceReloadCompletion",

	JobTypePostGet:            "PostGet",
	JobTypePostsMarkFlagged:   "PostsMarkFlagged",
	JobTypePostsMarkRead:      "PostsMarkRead",
	JobTypePostsMarkUnflagged: "PostsMarkUnflagged",
	JobTypePostsMarkUnread:    "PostsMarkUnread",

	JobTypeScriptFolderAdd:         "ScriptFolderAdd",
	JobTypeScriptFolderAssignPosts: "ScriptFolderAssignPosts",
	JobTypeScriptFolderGetPosts:    "ScriptFolderGetPosts",
	JobTypeScriptFolderRemove:      "ScriptFolderRemove",
	JobTypeScriptFoldersGet:        "ScriptFoldersGet",
	JobTypeScriptFolderUpdate:      "ScriptFolderUpdate",

	JobTypeScriptAdd:    "ScriptAdd",
	JobTypeScriptRemove: "ScriptRemove",
	JobTypeScriptsGet:   "ScriptsGet",
	JobTypeScriptUpdate: "ScriptUpdate",

	JobTypeSourceClearLogs:         "SourceClearLogs",
	JobTypeSourceGetLogs:           "SourceGetLogs",
	JobTypeSourceGetPosts:          "SourceGetPosts",
	JobTypeSourceGetStatus:         "SourceGetStatus",
	JobTypeSourceGetTree:           "SourceGetTree",
	JobTypeSourceGetUsedFlagColors: "SourceGetUsedFlagColors",
	JobTypeSourceImportOPML:        "SourceImportOPML",
	JobTypeSourceMarkRead:          "SourceMarkRead",
	JobTypeSourceRefresh:           "SourceRefresh",
}

// String returns the operation name, e.g. "FeedRefresh".
func (t JobType) String() string {
	if t < 0 || t >= jobTypeCount {
		return "Unknown"
	}
	return jobTypeNames[t]
}

// TypeName returns the name used to identify the concrete job in error
// messages, e.g. "FeedRefreshJob".
func (t JobType) TypeName() string {
	return t.String() + "Job"
}

// JobTypes returns every defined job type except JobTypeUnspecified.
func JobTypes() []JobType {
	types := make([]JobType, 0, jobTypeCount-1)
	for t := JobTypeUnspecified + 1; t < jobTypeCount; t++ {
		types = append(types, t)
	}
	return types
}
