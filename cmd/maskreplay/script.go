package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mask-editor/internal/app"
	"mask-editor/internal/gesture"
	"mask-editor/pkg/geometry"
)

// Step is one scripted input event. Coordinates are viewport pixels.
type Step struct {
	Op   string   `json:"op"`
	ID   int      `json:"id,omitempty"` // Pointer id, 1 if unset
	X    float64  `json:"x,omitempty"`
	Y    float64  `json:"y,omitempty"`
	DY   float64  `json:"dy,omitempty"`   // wheel
	Mods []string `json:"mods,omitempty"` // doubletap: shift, ctrl, alt, super
	Tool string   `json:"tool,omitempty"` // Pan, Paint, Erase
	Size float64  `json:"size,omitempty"` // brush diameter
}

var knownOps = map[string]bool{
	"down": true, "move": true, "up": true, "cancel": true,
	"wheel": true, "doubletap": true, "zoomin": true, "zoomout": true, "reset": true,
	"tool": true, "brush": true, "undo": true, "redo": true, "clear": true,
}

// ParseScript reads a JSON array of steps and validates each one.
func ParseScript(r io.Reader) ([]Step, error) {
	var steps []Step
	if err := json.NewDecoder(r).Decode(&steps); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	for i := range steps {
		if err := steps[i].validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		if steps[i].ID == 0 {
			steps[i].ID = 1
		}
	}
	return steps, nil
}

func (s Step) validate() error {
	if !knownOps[s.Op] {
		return fmt.Errorf("unknown op %q", s.Op)
	}
	switch s.Op {
	case "tool":
		if _, ok := gesture.ParseTool(s.Tool); !ok {
			return fmt.Errorf("unknown tool %q", s.Tool)
		}
	case "brush":
		if s.Size <= 0 {
			return fmt.Errorf("brush size must be positive")
		}
	case "doubletap":
		if _, err := parseMods(s.Mods); err != nil {
			return err
		}
	}
	return nil
}

func parseMods(names []string) (gesture.Modifier, error) {
	var mods gesture.Modifier
	for _, n := range names {
		switch strings.ToLower(n) {
		case "shift":
			mods |= gesture.ModShift
		case "ctrl", "control":
			mods |= gesture.ModControl
		case "alt":
			mods |= gesture.ModAlt
		case "super", "cmd":
			mods |= gesture.ModSuper
		default:
			return 0, fmt.Errorf("unknown modifier %q", n)
		}
	}
	return mods, nil
}

// Replay feeds steps to the session in order.
func Replay(s *app.Session, steps []Step) {
	for _, st := range steps {
		p := geometry.Pt(st.X, st.Y)
		switch st.Op {
		case "down":
			s.PointerDown(st.ID, p)
		case "move":
			s.PointerMove(st.ID, p)
		case "up":
			s.PointerUp(st.ID, p)
		case "cancel":
			s.PointerCancel(st.ID)
		case "wheel":
			s.Wheel(p, st.DY)
		case "doubletap":
			mods, _ := parseMods(st.Mods)
			s.DoubleTap(p, mods)
		case "zoomin":
			s.ZoomIn()
		case "zoomout":
			s.ZoomOut()
		case "reset":
			s.ResetView()
		case "tool":
			t, _ := gesture.ParseTool(st.Tool)
			s.SetTool(t)
		case "brush":
			s.SetBrushDiameter(st.Size)
		case "undo":
			s.Undo()
		case "redo":
			s.Redo()
		case "clear":
			s.ClearMask()
		}
	}
}

// parseView parses a "WxH" viewport size.
func parseView(v string) (geometry.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(v), "x")
	if !ok {
		return geometry.Size{}, fmt.Errorf("invalid view size %q, want WxH", v)
	}
	width, err := strconv.ParseFloat(w, 64)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("invalid view width: %w", err)
	}
	height, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return geometry.Size{}, fmt.Errorf("invalid view height: %w", err)
	}
	if width <= 0 || height <= 0 {
		return geometry.Size{}, fmt.Errorf("invalid view size %q", v)
	}
	return geometry.NewSize(width, height), nil
}
