// Package editor holds the claim-composition draft: the fields a user edits
// before submitting, a linear undo/redo history over them, and an
// asynchronous infringement pre-check where the newest result wins.
package editor

import (
	"fmt"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/claim"
)

// Field names a draft attribute tracked by the change history.
type Field string

const (
	FieldTokenID    Field = "token_id"
	FieldForeground Field = "foreground"
	FieldBackground Field = "background"
	FieldDuration   Field = "duration"
	FieldEditBuffer Field = "edit_buffer"
)

// Draft is the claim being composed. Mutate through Set so changes land in
// the history.
type Draft struct {
	TokenID    canvas.Token
	Style      canvas.Style
	Duration   uint16
	EditBuffer uint8

	history History
}

// NewDraft creates a draft with the reference defaults.
func NewDraft() *Draft {
	return &Draft{
		Style:      canvas.Style{Foreground: 0x000000, Background: 0xffffff},
		Duration:   1,
		EditBuffer: 5,
	}
}

// Candidate returns the fields the infringement test needs.
func (d *Draft) Candidate() claim.Candidate {
	return claim.Candidate{TokenID: d.TokenID, EditBuffer: d.EditBuffer}
}

// Set assigns a field value and records the change.
func (d *Draft) Set(field Field, value any) error {
	from := d.get(field)
	if err := d.apply(field, value); err != nil {
		return err
	}
	d.history.Record(Change{Field: field, From: from, To: value})
	return nil
}

// Undo reverts the most recent change. Reports whether anything changed.
func (d *Draft) Undo() bool {
	change, ok := d.history.StepBack()
	if !ok {
		return false
	}
	_ = d.apply(change.Field, change.From)
	return true
}

// Redo re-applies the most recently undone change.
func (d *Draft) Redo() bool {
	change, ok := d.history.StepForward()
	if !ok {
		return false
	}
	_ = d.apply(change.Field, change.To)
	return true
}

// CanUndo reports whether an undo step is available.
func (d *Draft) CanUndo() bool { return d.history.CanStepBack() }

// CanRedo reports whether a redo step is available.
func (d *Draft) CanRedo() bool { return d.history.CanStepForward() }

func (d *Draft) get(field Field) any {
	switch field {
	case FieldTokenID:
		return d.TokenID
	case FieldForeground:
		return d.Style.Foreground
	case FieldBackground:
		return d.Style.Background
	case FieldDuration:
		return d.Duration
	case FieldEditBuffer:
		return d.EditBuffer
	}
	return nil
}

func (d *Draft) apply(field Field, value any) error {
	switch field {
	case FieldTokenID:
		v, ok := value.(canvas.Token)
		if !ok {
			return fmt.Errorf("editor: %s expects canvas.Token", field)
		}
		d.TokenID = v
	case FieldForeground:
		v, ok := value.(canvas.Color)
		if !ok {
			return fmt.Errorf("editor: %s expects canvas.Color", field)
		}
		d.Style.Foreground = v
	case FieldBackground:
		v, ok := value.(canvas.Color)
		if !ok {
			return fmt.Errorf("editor: %s expects canvas.Color", field)
		}
		d.Style.Background = v
	case FieldDuration:
		v, ok := value.(uint16)
		if !ok {
			return fmt.Errorf("editor: %s expects uint16", field)
		}
		d.Duration = v
	case FieldEditBuffer:
		v, ok := value.(uint8)
		if !ok {
			return fmt.Errorf("editor: %s expects uint8", field)
		}
		d.EditBuffer = v
	default:
		return fmt.Errorf("editor: unknown field %q", field)
	}
	return nil
}
