package app

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"

	"mask-editor/internal/gesture"
	"mask-editor/internal/history"
	"mask-editor/internal/render"
	"mask-editor/internal/viewport"
	"mask-editor/pkg/colorutil"
)

// Config holds the tunables of an editing session.
type Config struct {
	// Zoom bounds as factors of the fit scale
	MinZoomFactor float64 `json:"minZoomFactor"`
	MaxZoomFactor float64 `json:"maxZoomFactor"`

	// Discrete zoom steps
	ZoomInStep    float64 `json:"zoomInStep"`
	ZoomOutStep   float64 `json:"zoomOutStep"`
	DoubleTapZoom float64 `json:"doubleTapZoom"`

	HistoryCapacity int     `json:"historyCapacity"`
	BrushDiameter   float64 `json:"brushDiameter"` // Viewport pixels

	OverlayTint    color.NRGBA `json:"overlayTint"`
	OverlayOpacity float64     `json:"overlayOpacity"`
	Background     color.RGBA  `json:"background"`

	FrameRate    int     `json:"frameRate"`
	PixelDensity float64 `json:"pixelDensity"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		MinZoomFactor:   viewport.DefaultMinZoomFactor,
		MaxZoomFactor:   viewport.DefaultMaxZoomFactor,
		ZoomInStep:      gesture.DefaultZoomInStep,
		ZoomOutStep:     gesture.DefaultZoomOutStep,
		DoubleTapZoom:   gesture.DefaultDoubleTapZoom,
		HistoryCapacity: history.DefaultCapacity,
		BrushDiameter:   gesture.DefaultBrushDiameter,
		OverlayTint:     colorutil.MaskTint,
		OverlayOpacity:  render.DefaultOverlayOpacity,
		Background:      colorutil.DarkGray,
		FrameRate:       render.DefaultFrameRate,
		PixelDensity:    1,
	}
}

// LoadConfig reads a JSON config file. Fields missing from the file keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg.normalized(), nil
}

// normalized replaces unset fields with their defaults.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MinZoomFactor <= 0 {
		c.MinZoomFactor = d.MinZoomFactor
	}
	if c.MaxZoomFactor <= 0 {
		c.MaxZoomFactor = d.MaxZoomFactor
	}
	if c.ZoomInStep <= 0 {
		c.ZoomInStep = d.ZoomInStep
	}
	if c.ZoomOutStep <= 0 {
		c.ZoomOutStep = d.ZoomOutStep
	}
	if c.DoubleTapZoom <= 0 {
		c.DoubleTapZoom = d.DoubleTapZoom
	}
	if c.HistoryCapacity < 1 {
		c.HistoryCapacity = d.HistoryCapacity
	}
	if c.BrushDiameter <= 0 {
		c.BrushDiameter = d.BrushDiameter
	}
	if c.OverlayTint == (color.NRGBA{}) {
		c.OverlayTint = d.OverlayTint
	}
	if c.OverlayOpacity <= 0 {
		c.OverlayOpacity = d.OverlayOpacity
	}
	if c.Background == (color.RGBA{}) {
		c.Background = d.Background
	}
	if c.FrameRate < 1 {
		c.FrameRate = d.FrameRate
	}
	if c.PixelDensity <= 0 {
		c.PixelDensity = d.PixelDensity
	}
	return c
}

func (c Config) gestureOptions(tool gesture.Tool, diameter float64) gesture.Options {
	return gesture.Options{
		ZoomInStep:    c.ZoomInStep,
		ZoomOutStep:   c.ZoomOutStep,
		DoubleTapZoom: c.DoubleTapZoom,
		BrushDiameter: diameter,
		Tool:          tool,
	}
}

func (c Config) style() render.Style {
	s := render.DefaultStyle()
	s.Background = c.Background
	s.OverlayTint = c.OverlayTint
	s.OverlayOpacity = c.OverlayOpacity
	return s
}
