package hook

import (
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/glorpus-work/pindex/pkg/errors"
)

// TengoExecutor handles the execution of Tengo scripts.
type TengoExecutor struct {
	scripts map[Event]string
	mutex   sync.RWMutex
}

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		scripts: make(map[Event]string),
	}
}

// Execute runs the script for the given event with the mutation context.
func (e *TengoExecutor) Execute(event Event, ctx Context) error {
	e.mutex.RLock()
	script, exists := e.scripts[event]
	e.mutex.RUnlock()
	if !exists {
		return nil // No script for this event
	}

	scriptInstance := tengo.NewScript([]byte(script))
	scriptInstance.SetImports(stdlib.GetModuleMap("fmt", "os", "strings", "times", "text"))

	_ = scriptInstance.Add("event", string(event))
	_ = scriptInstance.Add("filename", ctx.Filename)
	_ = scriptInstance.Add("packageName", ctx.PackageName)
	_ = scriptInstance.Add("version", ctx.Version)
	_ = scriptInstance.Add("generation", int64(ctx.Generation))

	for k, v := range ctx.Vars {
		_ = scriptInstance.Add(k, v)
	}

	compiled, err := scriptInstance.Run()
	if err != nil {
		return errors.Wrapf(errors.ErrHookExecution, "%s: %v", event, err)
	}

	// Check for any returned error
	if errVar := compiled.Get("err"); errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return errors.Wrap(errors.ErrHookScript, v.Error())
		case string:
			if v != "" {
				return errors.Wrap(errors.ErrHookScript, v)
			}
		}
	}

	return nil
}

// AddScript adds or updates a script for the specified event.
func (e *TengoExecutor) AddScript(event Event, script string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scripts[event] = script
}

// RemoveScript removes the script for the specified event.
func (e *TengoExecutor) RemoveScript(event Event) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.scripts, event)
}

// HasScript checks if a script exists for the specified event.
func (e *TengoExecutor) HasScript(event Event) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, ok := e.scripts[event]
	return ok
}
