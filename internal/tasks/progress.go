package tasks

import "fmt"

// ProgressUpdate represents a progress event during a reconciliation pass.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Reconciliation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchRemote Phase = iota
	Dedup
	Verify
	Evaluate
	Diff
	RemoveMembers
	AddMembers
	Commit
	EnrichItems
)

func (p Phase) String() string {
	switch p {
	case FetchRemote:
		return "fetch_remote"
	case Dedup:
		return "dedup"
	case Verify:
		return "verify"
	case Evaluate:
		return "evaluate"
	case Diff:
		return "diff"
	case RemoveMembers:
		return "remove_members"
	case AddMembers:
		return "add_members"
	case Commit:
		return "commit"
	case EnrichItems:
		return "enrich_items"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

func fetchRemoteUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRemote,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching members of %s...", name),
	}
}

func dedupUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Dedup,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Repairing duplicate entries of %s...", key),
	}
}

func verifyUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Verify,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Re-reading members of %s...", name),
	}
}

func evaluateUpdate(desired int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Evaluate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d catalog items belong on %s", desired, name),
	}
}

func diffUpdate(toAdd, toRemove int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Diff,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Planned %d additions, %d removals", toAdd, toRemove),
	}
}

func removeMemberUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RemoveMembers,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Removing %s...", key),
	}
}

func addMemberUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddMembers,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Adding %s...", key),
	}
}

func commitUpdate(expected int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Commit,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Recorded %d expected members", expected),
	}
}

func enrichUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Enriching %s...", key),
	}
}
