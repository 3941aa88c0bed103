package hook

import (
	"os"
	"sync"

	"github.com/glorpus-work/pindex/pkg/errors"
)

// DefaultManager is the default implementation of Manager.
type DefaultManager struct {
	executor *TengoExecutor
	mutex    sync.RWMutex
}

// NewManager creates a new hook manager.
func NewManager() *DefaultManager {
	return &DefaultManager{
		executor: NewTengoExecutor(),
	}
}

// Execute runs the script for the given event with the mutation context.
func (m *DefaultManager) Execute(event Event, ctx Context) error {
	if !m.HasHook(event) {
		return nil // No hook registered for this event
	}

	// Copy the context to prevent modifications
	ctxCopy := ctx
	if ctxCopy.Vars == nil {
		ctxCopy.Vars = make(map[string]interface{})
	}

	return m.executor.Execute(event, ctxCopy)
}

// AddHook registers a script for an event.
func (m *DefaultManager) AddHook(hook Hook) error {
	if hook.Event == "" {
		return errors.ErrHookEventEmpty
	}
	if !validEvent(hook.Event) {
		return errors.Wrapf(errors.ErrHookLoad, "unsupported hook event: %s", hook.Event)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executor.AddScript(hook.Event, hook.Content)
	return nil
}

// RemoveHook drops the script for an event.
func (m *DefaultManager) RemoveHook(event Event) error {
	if event == "" {
		return errors.ErrHookEventEmpty
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executor.RemoveScript(event)
	return nil
}

// HasHook checks whether an event has a script.
func (m *DefaultManager) HasHook(event Event) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.executor.HasScript(event)
}

// LoadFromFiles registers one script file per event. Entries with an empty
// path are skipped; events already registered are replaced.
func (m *DefaultManager) LoadFromFiles(scripts map[Event]string) error {
	for event, path := range scripts {
		if path == "" {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(errors.ErrHookLoad, "%s: %v", path, err)
		}
		if err := m.AddHook(Hook{Event: event, Content: string(content)}); err != nil {
			return err
		}
	}
	return nil
}

func validEvent(event Event) bool {
	switch event {
	case PackageAdded, PackageRemoved, IndexRefreshed:
		return true
	}
	return false
}
