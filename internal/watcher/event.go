package watcher

import "time"

// EventType is the kind of change observed on a watched file.
type EventType int

const (
	// EventAdded is emitted when a new file is detected (after settling)
	EventAdded EventType = iota
	// EventModified is emitted when a known file changes (after settling)
	EventModified
	// EventRemoved is emitted when a file is deleted or renamed away
	EventRemoved
)

// String returns the event type as used in log attributes.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a change to a watched file, emitted once the file has stopped
// growing for the settle delay. Size and ModTime are zero for removals.
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}
