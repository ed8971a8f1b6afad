// Package history records undoable commands.
package history

import (
	"fmt"

	"diagram-display/internal/errs"
)

// Command is one undoable edit.
type Command interface {
	Execute() error
	Revert() error
	Description() string
}

// DefaultLimit is the number of commands kept for undo.
const DefaultLimit = 100

// History holds the undo and redo stacks.
type History struct {
	undo  []Command
	redo  []Command
	limit int

	onChange []func()
}

// New returns an empty history keeping up to limit commands.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// OnChange registers a callback fired after the stacks change.
func (h *History) OnChange(cb func()) {
	h.onChange = append(h.onChange, cb)
}

// Execute runs cmd and records it. A failed command is not recorded.
func (h *History) Execute(cmd Command) error {
	if err := cmd.Execute(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Description(), err)
	}
	h.undo = append(h.undo, cmd)
	if len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
	h.redo = nil
	h.changed()
	return nil
}

// Undo reverts the most recent command.
func (h *History) Undo() error {
	if len(h.undo) == 0 {
		return fmt.Errorf("nothing to undo: %w", errs.ErrPreconditionFailed)
	}
	cmd := h.undo[len(h.undo)-1]
	if err := cmd.Revert(); err != nil {
		return fmt.Errorf("undo %s: %w", cmd.Description(), err)
	}
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = append(h.redo, cmd)
	h.changed()
	return nil
}

// Redo executes the most recently undone command again.
func (h *History) Redo() error {
	if len(h.redo) == 0 {
		return fmt.Errorf("nothing to redo: %w", errs.ErrPreconditionFailed)
	}
	cmd := h.redo[len(h.redo)-1]
	if err := cmd.Execute(); err != nil {
		return fmt.Errorf("redo %s: %w", cmd.Description(), err)
	}
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, cmd)
	h.changed()
	return nil
}

// CanUndo reports whether Undo has something to revert.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether Redo has something to execute.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// UndoDescription describes the command Undo would revert.
func (h *History) UndoDescription() string {
	if len(h.undo) == 0 {
		return ""
	}
	return h.undo[len(h.undo)-1].Description()
}

// RedoDescription describes the command Redo would execute.
func (h *History) RedoDescription() string {
	if len(h.redo) == 0 {
		return ""
	}
	return h.redo[len(h.redo)-1].Description()
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.undo, h.redo = nil, nil
	h.changed()
}

func (h *History) changed() {
	for _, cb := range h.onChange {
		cb()
	}
}
