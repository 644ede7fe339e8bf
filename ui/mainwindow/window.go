// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"mask-editor/internal/app"
	"mask-editor/internal/encode"
	"mask-editor/internal/gesture"
	"mask-editor/internal/image"
	"mask-editor/internal/submit"
	"mask-editor/internal/version"
	"mask-editor/internal/viewport"
	"mask-editor/pkg/geometry"
	"mask-editor/ui/canvas"
	"mask-editor/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	prefKeyLastDir      = "lastDirectory"
	prefKeyLastImage    = "lastImage"
	prefKeyTool         = "tool"
	prefKeyBrush        = "brushDiameter"
	prefKeyExportFormat = "exportFormat"
)

const (
	minBrush = 2
	maxBrush = 200

	// refineStep is the radius in image pixels of one Grow or Feather action.
	refineStep = 4

	exportTimeout = 30 * time.Second
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app     fyne.App
	session *app.Session
	prefs   *prefs.Prefs

	canvas    *canvas.MaskCanvas
	statusBar *widget.Label
	zoomLabel *widget.Label

	toolGroup   *widget.RadioGroup
	brushSlider *widget.Slider
	brushLabel  *widget.Label
	undoBtn     *widget.Button
	redoBtn     *widget.Button
	exportBtn   *widget.Button
	formatSel   *widget.Select

	submitter    *submit.Submitter
	exportDir    submit.DirUploader // Next to the loaded image
	exportTarget submit.DirUploader // Fixed for the export in flight
}

// New creates a new main window.
func New(fyneApp fyne.App, session *app.Session, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("Mask Editor")

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		session: session,
		prefs:   p,
	}
	mw.submitter = submit.New(submit.UploaderFunc(func(ctx context.Context, a encode.Artifacts) error {
		return mw.exportTarget.Upload(ctx, a)
	}))

	mw.restorePreferences()
	mw.setupUI()
	mw.setupMenus()
	mw.setupShortcuts()
	mw.setupEventHandlers()
	mw.setEditingEnabled(false)

	mw.SetOnClosed(func() {
		mw.savePreferences()
		mw.session.Close()
	})
	mw.Resize(fyne.NewSize(1024, 768))

	return mw
}

// MaskCanvas returns the editing surface, which receives render loop frames.
func (mw *MainWindow) MaskCanvas() *canvas.MaskCanvas {
	return mw.canvas
}

// restorePreferences applies the saved tool and brush to the session.
func (mw *MainWindow) restorePreferences() {
	if t, ok := gesture.ParseTool(mw.prefs.String(prefKeyTool)); ok {
		mw.session.SetTool(t)
	}
	if d := mw.prefs.Float(prefKeyBrush); d > 0 {
		mw.session.SetBrushDiameter(geometry.Clamp(d, minBrush, maxBrush))
	}
}

func (mw *MainWindow) savePreferences() {
	mw.prefs.SetString(prefKeyTool, mw.session.Tool().String())
	mw.prefs.SetFloat(prefKeyBrush, mw.session.BrushDiameter())
	mw.prefs.SetString(prefKeyExportFormat, mw.formatSel.Selected)
	if err := mw.prefs.Save(); err != nil {
		log.Printf("Prefs: save failed: %v", err)
	}
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewMaskCanvas(mw.session)

	mw.statusBar = widget.NewLabel("Open an image to start")
	mw.zoomLabel = widget.NewLabel("")

	toolbar := mw.createToolbar()
	status := container.NewBorder(nil, nil, nil, mw.zoomLabel, mw.statusBar)

	content := container.NewBorder(
		toolbar,                     // top
		container.NewPadded(status), // bottom
		nil,                         // left
		nil,                         // right
		mw.canvas,                   // center
	)

	mw.SetContent(content)
}

// createToolbar creates the tool, brush, history, zoom and export controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	tools := []string{gesture.ToolPan.String(), gesture.ToolBrushAdd.String(), gesture.ToolBrushRemove.String()}
	mw.toolGroup = widget.NewRadioGroup(tools, func(name string) {
		if t, ok := gesture.ParseTool(name); ok {
			mw.session.SetTool(t)
		}
	})
	mw.toolGroup.Horizontal = true
	mw.toolGroup.Required = true
	mw.toolGroup.SetSelected(mw.session.Tool().String())

	mw.brushLabel = widget.NewLabel("")
	mw.brushSlider = widget.NewSlider(minBrush, maxBrush)
	mw.brushSlider.Step = 1
	mw.brushSlider.SetValue(mw.session.BrushDiameter())
	mw.brushSlider.OnChanged = func(v float64) {
		mw.session.SetBrushDiameter(v)
		mw.updateBrushLabel()
	}
	mw.updateBrushLabel()

	mw.undoBtn = widget.NewButton("Undo", mw.onUndo)
	mw.redoBtn = widget.NewButton("Redo", mw.onRedo)

	zoomOutBtn := widget.NewButton("-", mw.session.ZoomOut)
	zoomInBtn := widget.NewButton("+", mw.session.ZoomIn)
	fitBtn := widget.NewButton("Fit", mw.session.ResetView)

	formats := []string{string(encode.FormatPNG), string(encode.FormatTIFF), string(encode.FormatBMP)}
	mw.formatSel = widget.NewSelect(formats, nil)
	if f, err := encode.ParseFormat(mw.prefs.String(prefKeyExportFormat)); err == nil {
		mw.formatSel.SetSelected(string(f))
	} else {
		mw.formatSel.SetSelected(string(encode.FormatPNG))
	}
	mw.exportBtn = widget.NewButton("Export", mw.onExport)

	brush := container.NewBorder(nil, nil, widget.NewLabel("Brush:"), mw.brushLabel, mw.brushSlider)

	return container.NewVBox(
		container.NewHBox(
			mw.toolGroup,
			widget.NewSeparator(),
			mw.undoBtn,
			mw.redoBtn,
			widget.NewSeparator(),
			widget.NewLabel("Zoom:"),
			zoomOutBtn,
			zoomInBtn,
			fitBtn,
			widget.NewSeparator(),
			mw.formatSel,
			mw.exportBtn,
		),
		brush,
	)
}

func (mw *MainWindow) updateBrushLabel() {
	text := fmt.Sprintf("%.0f px", mw.session.BrushDiameter())
	if r := mw.session.BrushRadius(); r > 0 {
		text += fmt.Sprintf(" (radius %.1f image px)", r)
	}
	mw.brushLabel.SetText(text)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpen),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export", mw.onExport),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.onUndo),
		fyne.NewMenuItem("Redo", mw.onRedo),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Grow Mask", func() { mw.onRefine(refineStep, 0) }),
		fyne.NewMenuItem("Feather Mask", func() { mw.onRefine(0, refineStep) }),
		fyne.NewMenuItem("Clear Mask", mw.onClear),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.session.ZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.session.ZoomOut),
		fyne.NewMenuItem("Fit to Window", mw.session.ResetView),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupShortcuts binds the keyboard shortcuts.
func (mw *MainWindow) setupShortcuts() {
	c := mw.Window.Canvas()
	mod := fyne.KeyModifierShortcutDefault
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: mod}, func(fyne.Shortcut) { mw.onUndo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: mod | fyne.KeyModifierShift}, func(fyne.Shortcut) { mw.onRedo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: mod}, func(fyne.Shortcut) { mw.onRedo() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: mod}, func(fyne.Shortcut) { mw.onOpen() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyE, Modifier: mod}, func(fyne.Shortcut) { mw.onExport() })
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.Key0, Modifier: mod}, func(fyne.Shortcut) { mw.session.ResetView() })

	c.SetOnTypedRune(func(r rune) {
		switch r {
		case 'h':
			mw.toolGroup.SetSelected(gesture.ToolPan.String())
		case 'b':
			mw.toolGroup.SetSelected(gesture.ToolBrushAdd.String())
		case 'e':
			mw.toolGroup.SetSelected(gesture.ToolBrushRemove.String())
		case '[':
			mw.brushSlider.SetValue(mw.brushSlider.Value - 4)
		case ']':
			mw.brushSlider.SetValue(mw.brushSlider.Value + 4)
		case '+', '=':
			mw.session.ZoomIn()
		case '-':
			mw.session.ZoomOut()
		}
	})
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.session.On(app.EventImageLoaded, func(data interface{}) {
		size, _ := data.(geometry.Size)
		if src := mw.session.Source(); src != nil && src.Path != "" {
			mw.exportDir = submit.ForSource(src.Path)
			mw.SetTitle("Mask Editor - " + filepath.Base(src.Path))
		}
		mw.setEditingEnabled(true)
		mw.updateStatus(fmt.Sprintf("Loaded %.0fx%.0f image", size.Width, size.Height))
	})

	mw.session.On(app.EventLoadFailed, func(data interface{}) {
		mw.setEditingEnabled(false)
		mw.SetTitle("Mask Editor")
		if err, ok := data.(error); ok {
			mw.updateStatus("Failed to load image: " + err.Error())
			dialog.ShowError(err, mw.Window)
		}
	})

	mw.session.On(app.EventHistoryChanged, func(data interface{}) {
		if hs, ok := data.(app.HistoryState); ok {
			setEnabled(mw.undoBtn, hs.CanUndo)
			setEnabled(mw.redoBtn, hs.CanRedo)
		}
	})

	mw.session.On(app.EventTransformChanged, func(data interface{}) {
		if t, ok := data.(viewport.Transform); ok {
			mw.zoomLabel.SetText(fmt.Sprintf("%.0f%%", t.Scale*100))
			mw.updateBrushLabel()
		}
	})

	mw.session.On(app.EventToolChanged, func(data interface{}) {
		if t, ok := data.(gesture.Tool); ok && mw.toolGroup.Selected != t.String() {
			mw.toolGroup.SetSelected(t.String())
		}
	})
}

// setEditingEnabled toggles every control that needs a loaded image.
func (mw *MainWindow) setEditingEnabled(on bool) {
	setEnabled(mw.exportBtn, on)
	setEnabled(mw.undoBtn, on && mw.session.CanUndo())
	setEnabled(mw.redoBtn, on && mw.session.CanRedo())
	if !on {
		mw.zoomLabel.SetText("")
	}
}

func setEnabled(w fyne.Disableable, on bool) {
	if on {
		w.Enable()
	} else {
		w.Disable()
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(path)
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// OpenFile loads the image at path into the session.
func (mw *MainWindow) OpenFile(path string) {
	mw.updateStatus("Loading " + filepath.Base(path) + "...")
	if err := mw.session.LoadFile(path); err != nil {
		// EventLoadFailed has already reported it
		return
	}
	mw.saveLastDir(path)
	mw.prefs.SetString(prefKeyLastImage, path)
}

// RestoreLastImage reopens the image from the previous run, if any.
func (mw *MainWindow) RestoreLastImage() bool {
	path := mw.prefs.String(prefKeyLastImage)
	if path == "" || !image.IsSupportedFormat(path) {
		return false
	}
	mw.OpenFile(path)
	return mw.session.Enabled()
}

// Menu action handlers

func (mw *MainWindow) onOpen() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		mw.OpenFile(reader.URI().Path())
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(image.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExport() {
	format, err := encode.ParseFormat(mw.formatSel.Selected)
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	art, ok := mw.session.Outputs(format)
	if !ok {
		mw.updateStatus("Nothing to export")
		return
	}
	if mw.submitter.InFlight() {
		mw.updateStatus("Export already in progress")
		return
	}
	mw.exportTarget = mw.exportDir
	maskPath, cutoutPath := mw.exportTarget.Paths(format)

	mw.exportBtn.Disable()
	mw.updateStatus("Exporting...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()
		err := mw.submitter.Submit(ctx, art)
		mw.exportBtn.Enable()
		switch {
		case errors.Is(err, submit.ErrInFlight):
			mw.updateStatus("Export already in progress")
		case err != nil:
			mw.updateStatus("Export failed")
			dialog.ShowError(err, mw.Window)
		default:
			log.Printf("Export: wrote %s and %s", maskPath, cutoutPath)
			mw.updateStatus(fmt.Sprintf("Exported %s and %s", filepath.Base(maskPath), filepath.Base(cutoutPath)))
		}
	}()
}

func (mw *MainWindow) onUndo() {
	if mw.session.Undo() {
		mw.updateStatus("Undo")
	}
}

func (mw *MainWindow) onRedo() {
	if mw.session.Redo() {
		mw.updateStatus("Redo")
	}
}

func (mw *MainWindow) onRefine(dilatePx, featherPx int) {
	if err := mw.session.Refine(dilatePx, featherPx); err != nil {
		if !errors.Is(err, app.ErrNoImage) {
			dialog.ShowError(err, mw.Window)
		}
		return
	}
	mw.updateStatus("Mask refined")
}

func (mw *MainWindow) onClear() {
	if !mw.session.Enabled() {
		return
	}
	dialog.ShowConfirm("Clear Mask", "Remove all painted regions?", func(ok bool) {
		if ok {
			mw.session.ClearMask()
			mw.updateStatus("Mask cleared")
		}
	}, mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Mask Editor",
		fmt.Sprintf("Mask Editor v%s\n\n"+
			"Paint the regions of a photo to regenerate.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
