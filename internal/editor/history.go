package editor

// Change is one reversible edit: the field touched and its value before and
// after.
type Change struct {
	Field Field
	From  any
	To    any
}

// History is a linear undo/redo stack with index-based navigation.
// Recording a change after stepping back truncates the redo tail.
type History struct {
	changes []Change
	index   int
}

// Record appends a change at the current position.
func (h *History) Record(change Change) {
	h.changes = append(h.changes[:h.index], change)
	h.index++
}

// StepBack moves the cursor back one change, returning it.
func (h *History) StepBack() (Change, bool) {
	if !h.CanStepBack() {
		return Change{}, false
	}
	h.index--
	return h.changes[h.index], true
}

// StepForward moves the cursor forward one change, returning it.
func (h *History) StepForward() (Change, bool) {
	if !h.CanStepForward() {
		return Change{}, false
	}
	change := h.changes[h.index]
	h.index++
	return change, true
}

// CanStepBack reports whether an undo step exists.
func (h *History) CanStepBack() bool { return h.index > 0 }

// CanStepForward reports whether a redo step exists.
func (h *History) CanStepForward() bool { return h.index < len(h.changes) }
