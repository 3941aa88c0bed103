// Package hook runs optional Tengo scripts when the catalog publishes a
// mutation. Hooks are observers: a failing script is logged by the caller
// and never reaches the serving path.
package hook

// Event identifies a catalog mutation a script can subscribe to.
type Event string

// Supported hook events.
const (
	PackageAdded   Event = "package-added"
	PackageRemoved Event = "package-removed"
	IndexRefreshed Event = "index-refreshed"
)

// Hook represents a hook script with its event and content.
type Hook struct {
	Event   Event
	Content string
}

// Context carries the mutation details passed into a script.
type Context struct {
	Filename    string
	PackageName string
	Version     string
	Generation  uint64
	Vars        map[string]interface{}
}

// Manager defines the interface for registering and firing hooks.
type Manager interface {
	// Execute runs the script for the given event, if one is registered
	Execute(event Event, ctx Context) error

	// AddHook registers a script for an event
	AddHook(hook Hook) error

	// RemoveHook drops the script for an event
	RemoveHook(event Event) error

	// HasHook checks whether an event has a script
	HasHook(event Event) bool
}
