// Package engine implements the Casetrail core: the timeline engine, the
// reminder engine, and the calendar aggregator that merges their output.
// Engines are stateless between calls; each holds only a store handle, a
// logger, and configuration.
package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// Node labels used in the graph store.
const (
	LabelLovedOne      = "LovedOne"
	LabelCase          = "Case"
	LabelTimelineEvent = "TimelineEvent"
	LabelReminder      = "Reminder"
	LabelUser          = "User"
)

// Edge types used in the graph store.
const (
	// EdgeHasEvent links a loved one to each of its timeline events.
	EdgeHasEvent = "HAS_EVENT"

	// EdgeRelatedTo links a reminder to its related case or loved one.
	EdgeRelatedTo = "RELATED_TO"

	// EdgeAssignedTo links a reminder to its assigned user.
	EdgeAssignedTo = "ASSIGNED_TO"
)

// generateID generates a unique node ID in the format <prefix>-<uuid8>,
// e.g. "evt-1a2b3c4d".
func generateID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String()[:8])
}
