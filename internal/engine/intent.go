package engine

import (
	"fmt"

	"github.com/LFroesch/voyager/internal/ops"
)

// IntentKind enumerates the commands the input layer can issue.
type IntentKind int

const (
	IntentNavigate IntentKind = iota
	IntentRefresh
	IntentBack
	IntentForward
	IntentToggleSelect
	IntentClearSelection
	IntentSetFilter
	IntentSubmitOp
	IntentCancelOp
	IntentUndo
	IntentRedo
	IntentOpenEntry
	IntentCopyPath
)

// Intent is one keyboard-layer command in data form. Drivers that
// prefer direct calls use the engine methods; Do exists for layers
// that map keys to values.
type Intent struct {
	Kind   IntentKind
	PaneID uint64
	Path   string      // navigate target, selection toggle, open, clipboard
	Query  string      // set-filter
	Op     ops.Request // submit-op
	Record *ops.Record // cancel-op
}

// Do dispatches an intent. The record return is set for submit-op,
// undo and redo.
func (e *Engine) Do(in Intent) (*ops.Record, error) {
	switch in.Kind {
	case IntentNavigate:
		return nil, e.Navigate(in.PaneID, in.Path)
	case IntentRefresh:
		return nil, e.Refresh(in.PaneID)
	case IntentBack:
		return nil, e.Back(in.PaneID)
	case IntentForward:
		return nil, e.Forward(in.PaneID)
	case IntentToggleSelect:
		return nil, e.ToggleSelect(in.PaneID, in.Path)
	case IntentClearSelection:
		return nil, e.ClearSelection(in.PaneID)
	case IntentSetFilter:
		return nil, e.SetFilter(in.PaneID, in.Query)
	case IntentSubmitOp:
		return e.Submit(in.Op)
	case IntentCancelOp:
		if in.Record != nil {
			e.Cancel(in.Record)
		}
		return nil, nil
	case IntentUndo:
		return e.Undo()
	case IntentRedo:
		return e.Redo()
	case IntentOpenEntry:
		return nil, e.OpenEntry(in.Path)
	case IntentCopyPath:
		return nil, e.CopyToClipboard(in.Path)
	default:
		return nil, fmt.Errorf("unknown intent %d", in.Kind)
	}
}
