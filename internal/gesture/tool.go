package gesture

import "mask-editor/internal/mask"

// Tool represents the current interaction tool.
type Tool int

const (
	ToolPan Tool = iota
	ToolBrushAdd
	ToolBrushRemove
)

func (t Tool) String() string {
	switch t {
	case ToolPan:
		return "Pan"
	case ToolBrushAdd:
		return "Paint"
	case ToolBrushRemove:
		return "Erase"
	default:
		return "Unknown"
	}
}

// IsBrush reports whether the tool paints into the mask.
func (t Tool) IsBrush() bool {
	return t == ToolBrushAdd || t == ToolBrushRemove
}

// Mode returns the mask compositing mode for a brush tool.
func (t Tool) Mode() mask.Mode {
	if t == ToolBrushRemove {
		return mask.ModeRemove
	}
	return mask.ModeAdd
}

// ParseTool maps a tool name (as produced by String, case-sensitive) back to
// a Tool.
func ParseTool(name string) (Tool, bool) {
	for _, t := range []Tool{ToolPan, ToolBrushAdd, ToolBrushRemove} {
		if t.String() == name {
			return t, true
		}
	}
	return ToolPan, false
}

// State is the recognizer's current gesture.
type State int

const (
	StateIdle State = iota
	StatePanning
	StateDrawing
	StatePinching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePanning:
		return "Panning"
	case StateDrawing:
		return "Drawing"
	case StatePinching:
		return "Pinching"
	default:
		return "Unknown"
	}
}

// Modifier is a bit set of keyboard modifiers held during an event.
type Modifier uint

const (
	ModShift Modifier = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// Change reports what an input event altered.
type Change uint

const (
	ChangeTransform Change = 1 << iota // Pan or zoom changed
	ChangeMask                         // Live mask pixels changed
	ChangeCommit                       // A history snapshot was appended
)

// Has reports whether c includes all bits of o.
func (c Change) Has(o Change) bool { return c&o == o }
