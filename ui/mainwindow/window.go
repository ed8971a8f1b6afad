// Package mainwindow provides the main application window.
package mainwindow

import (
	"errors"
	"fmt"
	"path/filepath"

	"diagram-display/internal/app"
	"diagram-display/internal/config"
	"diagram-display/internal/input"
	"diagram-display/internal/logging"
	"diagram-display/internal/project"
	"diagram-display/internal/version"
	"diagram-display/ui/canvas"
	"diagram-display/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const (
	appTitle       = "Diagram Display"
	fileExt        = ".diagram"
	prefKeyLastDir = "lastDirectory"
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	prefs     *prefs.Prefs
	canvas    *canvas.DiagramCanvas
	statusBar *widget.Label
	zoomLabel *widget.Label

	file     *project.File
	filePath string

	// Menu items that need state tracking
	gridItem   *fyne.MenuItem
	layersItem *fyne.MenuItem
}

// New creates the main window around a diagram canvas.
func New(fyneApp fyne.App, c *canvas.DiagramCanvas, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		prefs:  p,
		canvas: c,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	win.Resize(fyne.NewSize(
		float32(p.Float(prefs.KeyWindowWidth, 1024)),
		float32(p.Float(prefs.KeyWindowHeight, 768)),
	))
	win.SetCloseIntercept(func() {
		mw.SavePreferences()
		win.Close()
	})
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.statusBar = widget.NewLabel("Ready")
	mw.zoomLabel = widget.NewLabel("100%")

	content := container.NewBorder(
		mw.createToolbar(),                // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.canvas,                         // center
	)
	mw.SetContent(content)
}

// createToolbar creates the toolbar with zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.onZoomOut),
		widget.NewButton("+", mw.onZoomIn),
		widget.NewButton("Fit", mw.onZoomToFit),
		widget.NewButton("1:1", mw.onActualSize),
		mw.zoomLabel,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open...", mw.onOpen),
		fyne.NewMenuItem("Open Sample", mw.onOpenSample),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save", mw.onSave),
		fyne.NewMenuItem("Save As...", mw.onSaveAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export PNG...", mw.onExportPNG),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() {
			mw.SavePreferences()
			mw.app.Quit()
		}),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", mw.dispatch("undo", (*input.Dispatcher).Undo)),
		fyne.NewMenuItem("Redo", mw.dispatch("redo", (*input.Dispatcher).Redo)),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Cut", mw.dispatch("cut", (*input.Dispatcher).Cut)),
		fyne.NewMenuItem("Copy", mw.dispatch("copy", (*input.Dispatcher).Copy)),
		fyne.NewMenuItem("Paste", mw.dispatch("paste", func(d *input.Dispatcher) error { return d.Paste(nil) })),
		fyne.NewMenuItem("Delete", mw.dispatch("delete", (*input.Dispatcher).Delete)),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Select All", mw.dispatch("select all", (*input.Dispatcher).SelectAll)),
		fyne.NewMenuItem("Edit Caption", mw.dispatch("edit caption", (*input.Dispatcher).EditSelectedCaption)),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Group", mw.dispatch("group", func(d *input.Dispatcher) error { return d.Group(false) })),
		fyne.NewMenuItem("Aggregate", mw.dispatch("aggregate", func(d *input.Dispatcher) error { return d.Group(true) })),
		fyne.NewMenuItem("Ungroup", mw.dispatch("ungroup", (*input.Dispatcher).Ungroup)),
	)

	mw.gridItem = fyne.NewMenuItem("Show Grid", mw.onToggleGrid)
	mw.layersItem = fyne.NewMenuItem("Layers", nil)
	mw.layersItem.ChildMenu = fyne.NewMenu("")

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Zoom to Fit", mw.onZoomToFit),
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
		fyne.NewMenuItemSeparator(),
		mw.gridItem,
		mw.layersItem,
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
	mw.syncViewMenu()
}

// setupEventHandlers registers for display events. The handlers run with
// the display locked and only touch widgets.
func (mw *MainWindow) setupEventHandlers() {
	mw.canvas.Do(func(d *app.Display) {
		d.On(app.EventZoomChanged, func(data any) {
			if percent, ok := data.(int); ok {
				mw.zoomLabel.SetText(fmt.Sprintf("%d%%", percent))
			}
		})

		d.On(app.EventSelectionChanged, func(any) {
			mw.updateStatus(fmt.Sprintf("%d selected", d.Selection().Count()))
		})

		d.On(app.EventShapeClick, func(data any) {
			if click, ok := data.(input.ShapeClick); ok {
				mw.updateStatus(fmt.Sprintf("Clicked %s", click.Shape.TemplateName()))
			}
		})

		d.On(app.EventDiagramChanged, func(any) {
			title := appTitle
			if diagram := d.Diagram(); diagram != nil {
				title += " - " + diagram.Name
			}
			mw.SetTitle(title)
		})
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.app.Preferences().String(prefKeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.app.Preferences().SetString(prefKeyLastDir, filepath.Dir(filePath))
}

// OpenFile loads a diagram file and shows its diagram.
func (mw *MainWindow) OpenFile(path string) error {
	f, err := project.Load(path)
	if err != nil {
		return err
	}
	if err := mw.ShowProject(f, path); err != nil {
		return err
	}
	if s, err := config.LoadOrDefault(f.GetSettingsPath(path)); err != nil {
		logging.Logger().Warn("diagram settings", "path", path, "err", err)
	} else {
		mw.applySettings(s)
	}
	return nil
}

// ShowProject replaces the shown diagram with the one described by f. Path
// is where the file is saved; it is empty for unsaved files.
func (mw *MainWindow) ShowProject(f *project.File, path string) error {
	var err error
	mw.canvas.Do(func(d *app.Display) {
		repo := d.Repository()
		for _, old := range repo.Diagrams() {
			repo.RemoveDiagram(old)
		}
		diagram, buildErr := f.Build(repo)
		if buildErr != nil {
			err = buildErr
			return
		}
		d.SetDiagram(diagram)
		if zoom := mw.prefs.Int(prefs.KeyZoomPercent, 100); zoom != 100 && path != "" && path == mw.prefs.String(prefs.KeyLastFile) {
			if zerr := d.Viewport().SetZoom(zoom); zerr != nil {
				logging.Logger().Warn("restore zoom", "zoom", zoom, "err", zerr)
			}
		}
	})
	if err != nil {
		return err
	}

	mw.file = f
	mw.filePath = path
	if path != "" {
		mw.prefs.SetString(prefs.KeyLastFile, path)
		mw.SetTitle(appTitle + " - " + filepath.Base(path))
	}
	mw.rebuildLayersMenu()
	mw.updateStatus(fmt.Sprintf("Showing %s", f.Diagram.Name))
	return nil
}

// ApplySettingsFile reloads display settings from path. It is safe to call
// from any goroutine.
func (mw *MainWindow) ApplySettingsFile(path string) {
	s, err := config.Load(path)
	if err != nil {
		logging.Logger().Error("reload settings", "path", path, "err", err)
		mw.updateStatus("Settings not reloaded: " + err.Error())
		return
	}
	mw.applySettings(s)
	mw.updateStatus("Settings reloaded")
}

func (mw *MainWindow) applySettings(s *config.Settings) {
	var err error
	mw.canvas.Do(func(d *app.Display) { err = d.ApplySettings(s) })
	if err != nil {
		logging.Logger().Error("apply settings", "err", err)
		return
	}
	mw.syncViewMenu()
}

// SavePreferences stores the window and view state.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	mw.canvas.Do(func(d *app.Display) {
		mw.prefs.SetInt(prefs.KeyZoomPercent, d.Viewport().ZoomPercent())
		mw.prefs.SetBool(prefs.KeyShowGrid, d.Settings().Grid.Show)
		if diagram := d.Diagram(); diagram != nil {
			mw.prefs.SetString(prefs.KeyLastDiagram, diagram.Name)
		}
	})
	if err := mw.prefs.Save(); err != nil {
		logging.Logger().Warn("save preferences", "path", mw.prefs.Path(), "err", err)
	}
}

// dispatch returns a menu action running an edit command.
func (mw *MainWindow) dispatch(name string, fn func(*input.Dispatcher) error) func() {
	return func() {
		var err error
		mw.canvas.Do(func(d *app.Display) { err = fn(d.Dispatcher()) })
		if err != nil {
			mw.updateStatus(fmt.Sprintf("%s: %v", name, err))
		}
	}
}

// syncViewMenu updates the check marks of the view menu.
func (mw *MainWindow) syncViewMenu() {
	var show bool
	mw.canvas.Do(func(d *app.Display) { show = d.Settings().Grid.Show })
	mw.gridItem.Checked = show
	mw.refreshMenu()
}

// rebuildLayersMenu lists the layers of the shown diagram.
func (mw *MainWindow) rebuildLayersMenu() {
	var items []*fyne.MenuItem
	mw.canvas.Do(func(d *app.Display) {
		diagram := d.Diagram()
		if diagram == nil {
			return
		}
		for _, l := range diagram.Layers().Layers() {
			name := l.Name
			title := l.Title
			if title == "" {
				title = name
			}
			item := fyne.NewMenuItem(title, nil)
			item.Checked = !l.Hidden
			item.Action = func() { mw.onToggleLayer(item, name) }
			items = append(items, item)
		}
	})
	mw.layersItem.ChildMenu = fyne.NewMenu("", items...)
	mw.layersItem.Disabled = len(items) == 0
	mw.refreshMenu()
}

func (mw *MainWindow) refreshMenu() {
	if menu := mw.MainMenu(); menu != nil {
		menu.Refresh()
	}
}

// Menu action handlers

func (mw *MainWindow) onOpen() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.OpenFile(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{fileExt}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onOpenSample() {
	if err := mw.ShowProject(project.Sample(), ""); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSave() {
	if mw.filePath == "" {
		mw.onSaveAs()
		return
	}
	if err := mw.save(mw.filePath); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

func (mw *MainWindow) onSaveAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != fileExt {
			path += fileExt
		}
		mw.saveLastDir(path)
		if err := mw.save(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName("diagram" + fileExt)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// save writes the shown diagram, keeping the file metadata of the opened file.
func (mw *MainWindow) save(path string) error {
	var f *project.File
	mw.canvas.Do(func(d *app.Display) {
		if diagram := d.Diagram(); diagram != nil {
			f = project.FromDiagram(diagram)
		}
	})
	if f == nil {
		return errors.New("no diagram to save")
	}
	if mw.file != nil {
		f.Created = mw.file.Created
		f.Description = mw.file.Description
		f.SettingsPath = mw.file.SettingsPath
	}
	if err := f.Save(path); err != nil {
		return err
	}
	mw.file = f
	mw.filePath = path
	mw.prefs.SetString(prefs.KeyLastFile, path)
	mw.SetTitle(appTitle + " - " + filepath.Base(path))
	mw.updateStatus("Saved " + path)
	return nil
}

func (mw *MainWindow) onExportPNG() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		mw.saveLastDir(path)

		var exportErr error
		mw.canvas.Do(func(d *app.Display) {
			bounds := d.Viewport().DrawBounds()
			s, err := d.Render(bounds.Width, bounds.Height)
			if err != nil {
				exportErr = err
				return
			}
			exportErr = s.SavePNG(path)
		})
		if exportErr != nil {
			dialog.ShowError(exportErr, mw.Window)
			return
		}
		mw.updateStatus("Exported " + path)
	}, mw.Window)
	fd.SetFileName("diagram.png")
	fd.Show()
}

func (mw *MainWindow) onZoomIn() {
	mw.zoom(func(d *app.Display) error { return d.Viewport().ZoomIn() })
}

func (mw *MainWindow) onZoomOut() {
	mw.zoom(func(d *app.Display) error { return d.Viewport().ZoomOut() })
}

func (mw *MainWindow) onZoomToFit() {
	mw.zoom(func(d *app.Display) error { return d.Viewport().ZoomToFit() })
}

func (mw *MainWindow) onActualSize() {
	mw.zoom(func(d *app.Display) error { return d.Viewport().SetZoom(100) })
}

func (mw *MainWindow) zoom(fn func(d *app.Display) error) {
	var err error
	mw.canvas.Do(func(d *app.Display) { err = fn(d) })
	if err != nil {
		mw.updateStatus(err.Error())
	}
}

func (mw *MainWindow) onToggleGrid() {
	var err error
	mw.canvas.Do(func(d *app.Display) {
		s := *d.Settings()
		s.Grid.Show = !s.Grid.Show
		err = d.ApplySettings(&s)
	})
	if err != nil {
		mw.updateStatus(err.Error())
	}
	mw.syncViewMenu()
}

func (mw *MainWindow) onToggleLayer(item *fyne.MenuItem, name string) {
	var err error
	mw.canvas.Do(func(d *app.Display) {
		err = d.SetLayersHidden(item.Checked, name)
	})
	if err != nil {
		mw.updateStatus(err.Error())
		return
	}
	item.Checked = !item.Checked
	mw.refreshMenu()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"An interactive viewer for box-and-group diagrams.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
