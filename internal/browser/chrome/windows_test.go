package chrome

import (
	"testing"

	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
)

func TestOwnedPagesSkipsLauncherTab(t *testing.T) {
	infos := []*target.Info{
		{TargetID: "session", Type: "page"},
		{TargetID: "launcher", Type: "page"},
	}
	owned := map[target.ID]bool{"session": true}

	assert.Equal(t, []target.ID{"session"}, ownedPages(infos, owned))
}

func TestOwnedPagesFollowsOpenerChain(t *testing.T) {
	infos := []*target.Info{
		{TargetID: "grandchild", Type: "page", OpenerID: "popup"},
		{TargetID: "popup", Type: "page", OpenerID: "session"},
		{TargetID: "worker", Type: "service_worker", OpenerID: "session"},
		{TargetID: "session", Type: "page"},
		{TargetID: "other", Type: "page"},
		{TargetID: "other-popup", Type: "page", OpenerID: "other"},
		{TargetID: "launcher", Type: "page"},
	}
	owned := map[target.ID]bool{"session": true}

	got := ownedPages(infos, owned)
	assert.ElementsMatch(t, []target.ID{"grandchild", "popup", "session"}, got)
	assert.True(t, owned["popup"])
	assert.True(t, owned["grandchild"])
	assert.False(t, owned["other-popup"])
	assert.False(t, owned["worker"])
}

func TestOwnedPagesKeepsOrphanedPopups(t *testing.T) {
	owned := map[target.ID]bool{"session": true}
	ownedPages([]*target.Info{
		{TargetID: "session", Type: "page"},
		{TargetID: "popup", Type: "page", OpenerID: "session"},
	}, owned)

	// The opener closed; the popup still belongs to the session.
	got := ownedPages([]*target.Info{
		{TargetID: "popup", Type: "page", OpenerID: "session"},
		{TargetID: "launcher", Type: "page"},
	}, owned)
	assert.Equal(t, []target.ID{"popup"}, got)
}
