package assessment

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/aptitude/internal/session"
)

// snapshotMsg carries the latest session snapshot into the update loop.
type snapshotMsg session.Snapshot

// runnerStoppedMsg is sent once the session runner has exited.
type runnerStoppedMsg struct{}

// waitForSnapshot blocks until the runner publishes a snapshot or stops.
func waitForSnapshot(r Runner) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-r.Snapshots():
			return snapshotMsg(s)
		case <-r.Done():
			return runnerStoppedMsg{}
		}
	}
}
