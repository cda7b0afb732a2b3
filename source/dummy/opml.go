package dummy

import (
	"context"

	"github.com/Swind/go-feed-agent/core"
	"github.com/Swind/go-feed-agent/source"
)

// ImportOPML implements source.Source. Folders are created for outlines
// without a feed URL; feeds that are already subscribed are skipped.
func (s *Source) ImportOPML(ctx context.Context, opml string, parentFolderID uint64) ([]uint64, error) {
	outlines, err := source.ParseOPML(opml)
	if err != nil {
		return nil, core.WrapSourceError("import OPML", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parentFolderID != 0 {
		if _, err := s.folderLocked(parentFolderID); err != nil {
			return nil, err
		}
	}

	subscribed := map[string]bool{}
	for _, fs := range s.feeds {
		subscribed[fs.feed.URL] = true
	}

	var created []uint64
	var walk func(items []source.OPMLOutline, parent uint64)
	walk = func(items []source.OPMLOutline, parent uint64) {
		for _, o := range items {
			if o.IsFeed() {
				if subscribed[o.XMLURL] {
					continue
				}
				id := s.addFeedLocked(o.XMLURL, parent)
				if name := o.Name(); name != "" {
					s.feeds[id].feed.Title = name
				}
				s.feeds[id].feed.Link = o.HTMLURL
				subscribed[o.XMLURL] = true
				created = append(created, id)
				continue
			}
			walk(o.Outlines, s.addFolderLocked(o.Name(), parent))
		}
	}
	walk(outlines, parentFolderID)

	s.addLogLocked(source.LogInfo, 0, "Imported OPML")
	return created, nil
}
