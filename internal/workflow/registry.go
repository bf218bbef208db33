package workflow

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages workflow registration and lookup by kind, command and
// button action.
type Registry struct {
	byKind    map[Kind]Workflow
	byCommand map[string]Workflow
	byAction  map[string]Workflow
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byKind:    make(map[Kind]Workflow),
		byCommand: make(map[string]Workflow),
		byAction:  make(map[string]Workflow),
	}
}

// Register adds a workflow. Registering the same kind twice replaces the
// previous entry; a command or action already claimed by another kind is an
// error.
func (r *Registry) Register(w Workflow) error {
	if w == nil {
		return fmt.Errorf("cannot register nil workflow")
	}
	if w.Kind() == "" {
		return fmt.Errorf("workflow kind cannot be empty")
	}
	if w.Command() == "" {
		return fmt.Errorf("workflow %s: command cannot be empty", w.Kind())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if other, ok := r.byCommand[w.Command()]; ok && other.Kind() != w.Kind() {
		return fmt.Errorf("command %q already registered by %s", w.Command(), other.Kind())
	}
	actions := w.Actions()
	for _, name := range []string{actions.Join, actions.Finalize, actions.Retry} {
		if name == "" {
			continue
		}
		if other, ok := r.byAction[name]; ok && other.Kind() != w.Kind() {
			return fmt.Errorf("action %q already registered by %s", name, other.Kind())
		}
	}

	if old, ok := r.byKind[w.Kind()]; ok {
		r.unregisterLocked(old)
	}

	r.byKind[w.Kind()] = w
	r.byCommand[w.Command()] = w
	for _, name := range []string{actions.Join, actions.Finalize, actions.Retry} {
		if name != "" {
			r.byAction[name] = w
		}
	}
	return nil
}

func (r *Registry) unregisterLocked(w Workflow) {
	delete(r.byKind, w.Kind())
	delete(r.byCommand, w.Command())
	actions := w.Actions()
	for _, name := range []string{actions.Join, actions.Finalize, actions.Retry} {
		delete(r.byAction, name)
	}
}

// Get retrieves a workflow by kind.
func (r *Registry) Get(kind Kind) (Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byKind[kind]
	return w, ok
}

// ByCommand retrieves the workflow started by a command.
func (r *Registry) ByCommand(command string) (Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byCommand[command]
	return w, ok
}

// ByAction retrieves the workflow owning a button action along with the
// action type.
func (r *Registry) ByAction(action string) (Workflow, ActionType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byAction[action]
	if !ok {
		return nil, ActionUnknown, false
	}
	return w, w.Actions().Classify(action), true
}

// List returns all registered workflows sorted by command.
func (r *Registry) List() []Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Workflow, 0, len(r.byKind))
	for _, w := range r.byKind {
		list = append(list, w)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Command() < list[j].Command() })
	return list
}

// Commands returns all registered start commands, sorted.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make([]string, 0, len(r.byCommand))
	for cmd := range r.byCommand {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)
	return commands
}

// Count returns the number of registered workflows.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKind)
}
