package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mcdev12/tagchase/go/internal/live"
	"github.com/mcdev12/tagchase/go/internal/models"
)

// printer writes live changes as plain lines. It remembers the last
// snapshot so each change is printed once.
type printer struct {
	out io.Writer

	state      live.ConnectionState
	lastTagID  int
	standings  []models.Standing
	haveUpdate bool
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) update(snap live.Snapshot) {
	if !p.haveUpdate || snap.State != p.state {
		fmt.Fprintf(p.out, "* %s\n", snap.State)
	}

	// recent tags are newest first; print the unseen ones oldest first
	var fresh []models.TagEvent
	for _, tag := range snap.RecentTags {
		if tag.ID <= p.lastTagID {
			break
		}
		fresh = append(fresh, tag)
	}
	for i := len(fresh) - 1; i >= 0; i-- {
		p.tag(fresh[i])
	}
	if len(fresh) > 0 {
		p.lastTagID = fresh[0].ID
	}

	if snap.Leaderboard != nil && !sameStandings(p.standings, snap.Leaderboard) {
		p.leaderboard(snap.Leaderboard)
		p.standings = snap.Leaderboard
	}

	p.state = snap.State
	p.haveUpdate = true
}

func (p *printer) tag(tag models.TagEvent) {
	line := fmt.Sprintf("%s tagged %s (+%d)", tag.TaggerName, tag.TaggedName, tag.PointsAwarded)
	if tag.Message != "" {
		line += ": " + tag.Message
	}
	fmt.Fprintln(p.out, line)
}

func (p *printer) leaderboard(standings []models.Standing) {
	if len(standings) == 0 {
		fmt.Fprintln(p.out, "leaderboard is empty")
		return
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPLAYER\tPOINTS\tTIME HELD\t")
	for _, s := range standings {
		holder := ""
		if s.IsCurrentHolder {
			holder = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			s.Rank, s.User.DisplayName(), s.Points, models.FormatDuration(s.TimeHeld.Duration), holder)
	}
	w.Flush()
}

func sameStandings(a, b []models.Standing) bool {
	if a == nil || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Rank != b[i].Rank ||
			a[i].User.Username != b[i].User.Username ||
			a[i].Points != b[i].Points ||
			a[i].TimeHeld != b[i].TimeHeld ||
			a[i].IsCurrentHolder != b[i].IsCurrentHolder {
			return false
		}
	}
	return true
}
