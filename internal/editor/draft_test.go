package editor_test

import (
	"testing"

	"github.com/easelhq/easel/internal/canvas"
	"github.com/easelhq/easel/internal/editor"
	"github.com/stretchr/testify/require"
)

func TestNewDraftDefaults(t *testing.T) {
	d := editor.NewDraft()
	require.True(t, d.TokenID.IsZero())
	require.Equal(t, canvas.Color(0x000000), d.Style.Foreground)
	require.Equal(t, canvas.Color(0xffffff), d.Style.Background)
	require.Equal(t, uint16(1), d.Duration)
	require.Equal(t, uint8(5), d.EditBuffer)
	require.False(t, d.CanUndo())
	require.False(t, d.CanRedo())
}

func TestSetAndUndoRedo(t *testing.T) {
	d := editor.NewDraft()

	require.NoError(t, d.Set(editor.FieldDuration, uint16(10)))
	require.NoError(t, d.Set(editor.FieldForeground, canvas.Color(0xff0000)))
	require.Equal(t, uint16(10), d.Duration)
	require.Equal(t, canvas.Color(0xff0000), d.Style.Foreground)

	// Undo walks back in reverse order.
	require.True(t, d.Undo())
	require.Equal(t, canvas.Color(0x000000), d.Style.Foreground)
	require.Equal(t, uint16(10), d.Duration)

	require.True(t, d.Undo())
	require.Equal(t, uint16(1), d.Duration)
	require.False(t, d.Undo(), "history exhausted")

	// Redo replays forward.
	require.True(t, d.Redo())
	require.Equal(t, uint16(10), d.Duration)
	require.True(t, d.Redo())
	require.Equal(t, canvas.Color(0xff0000), d.Style.Foreground)
	require.False(t, d.Redo())
}

func TestSetTruncatesRedoTail(t *testing.T) {
	d := editor.NewDraft()

	require.NoError(t, d.Set(editor.FieldDuration, uint16(10)))
	require.NoError(t, d.Set(editor.FieldDuration, uint16(20)))
	require.True(t, d.Undo())
	require.Equal(t, uint16(10), d.Duration)

	// A fresh change while undone discards the redo branch.
	require.NoError(t, d.Set(editor.FieldEditBuffer, uint8(7)))
	require.False(t, d.CanRedo())

	require.True(t, d.Undo())
	require.Equal(t, uint8(5), d.EditBuffer)
	require.True(t, d.Undo())
	require.Equal(t, uint16(1), d.Duration)
}

func TestSetTokenBits(t *testing.T) {
	d := editor.NewDraft()

	var tok canvas.Token
	tok.SetBit(3)
	require.NoError(t, d.Set(editor.FieldTokenID, tok))
	require.True(t, d.TokenID.Bit(3))

	next := d.TokenID
	next.SetBit(7)
	require.NoError(t, d.Set(editor.FieldTokenID, next))

	require.True(t, d.Undo())
	require.False(t, d.TokenID.Bit(7))
	require.True(t, d.TokenID.Bit(3))
}

func TestSetRejectsWrongType(t *testing.T) {
	d := editor.NewDraft()

	err := d.Set(editor.FieldDuration, "ten")
	require.Error(t, err)
	require.Equal(t, uint16(1), d.Duration, "failed set must not mutate")
	require.False(t, d.CanUndo(), "failed set must not enter history")

	err = d.Set(editor.Field("brush_size"), 1)
	require.Error(t, err)
}

func TestCandidate(t *testing.T) {
	d := editor.NewDraft()
	var tok canvas.Token
	tok.SetBit(9)
	require.NoError(t, d.Set(editor.FieldTokenID, tok))
	require.NoError(t, d.Set(editor.FieldEditBuffer, uint8(3)))

	candidate := d.Candidate()
	require.Equal(t, tok, candidate.TokenID)
	require.Equal(t, uint8(3), candidate.EditBuffer)
}
