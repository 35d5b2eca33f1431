package chrome

import "github.com/chromedp/cdproto/target"

// ownedPages returns the page targets in infos that belong to a session
// owning the ids in owned: the pages it created and every page opened from
// one of them, directly or through a chain of openers. owned is extended
// with the new members. The launcher tab and pages of other sessions on a
// shared browser are never included.
func ownedPages(infos []*target.Info, owned map[target.ID]bool) []target.ID {
	pages := make(map[target.ID]*target.Info, len(infos))
	for _, info := range infos {
		if info != nil && info.Type == "page" {
			pages[info.TargetID] = info
		}
	}

	for changed := true; changed; {
		changed = false
		for id, info := range pages {
			if !owned[id] && info.OpenerID != "" && owned[info.OpenerID] {
				owned[id] = true
				changed = true
			}
		}
	}

	var ids []target.ID
	for _, info := range infos {
		if info == nil || info.Type != "page" {
			continue
		}
		if owned[info.TargetID] {
			ids = append(ids, info.TargetID)
		}
	}
	return ids
}
