// Command diagram-display shows a diagram file in an interactive window.
package main

import (
	"log"
	"path/filepath"
	"time"

	"diagram-display/internal/app"
	"diagram-display/internal/config"
	"diagram-display/internal/logging"
	"diagram-display/internal/project"
	"diagram-display/internal/version"
	"diagram-display/ui/canvas"
	"diagram-display/ui/mainwindow"
	"diagram-display/ui/prefs"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/gregoryv/cmdline"
)

const settingsSettle = 300 * time.Millisecond

func main() {
	var (
		cli          = cmdline.NewBasicParser()
		debug        = cli.Flag("-d, --debug")
		settingsPath = cli.Option("-s, --settings").String(config.DefaultPath())
		noWatch      = cli.Flag("--no-watch")
		file         = cli.NamedArg("FILE").String("")
	)
	u := cli.Usage()
	u.Preface("Interactive viewer for diagram files")
	cli.Parse()

	logging.SetLogger(logging.NewTextLogger(debug))
	logger := logging.Logger()
	logger.Info("starting", "version", version.String())

	settings, err := config.LoadOrDefault(settingsPath)
	if err != nil {
		logger.Error("settings", "path", settingsPath, "err", err)
		settings = config.Default()
	}
	theme, err := settings.Theme()
	if err != nil {
		fatal(err)
	}

	fyneApp := fyneapp.NewWithID("io.github.diagram-display")
	fyneApp.Settings().SetTheme(app.NewDisplayTheme(theme))

	c, err := canvas.NewDiagramCanvas(app.Options{Settings: settings})
	if err != nil {
		fatal(err)
	}
	appPrefs := prefs.Load()
	win := mainwindow.New(fyneApp, c, appPrefs)

	if file == "" {
		file = appPrefs.String(prefs.KeyLastFile)
	}
	if file != "" {
		if err := win.OpenFile(file); err != nil {
			logger.Error("open", "path", file, "err", err)
			file = ""
		}
	}
	if file == "" {
		if err := win.ShowProject(project.Sample(), ""); err != nil {
			fatal(err)
		}
	}

	if !noWatch {
		if w := watchFiles(win, settingsPath, file); w != nil {
			defer w.Stop()
		}
	}

	win.ShowAndRun()
}

// watchFiles reloads the display settings, and the diagram file when one
// was opened, whenever they change on disk.
func watchFiles(win *mainwindow.MainWindow, settingsPath, file string) *app.FileWatcher {
	paths := []string{settingsPath}
	if file != "" {
		paths = append(paths, file)
	}
	w, err := app.NewFileWatcher(settingsSettle, paths...)
	if err != nil {
		logging.Logger().Warn("file watch disabled", "paths", paths, "err", err)
		return nil
	}
	settingsAbs, _ := filepath.Abs(settingsPath)
	w.OnChange(func(path string) {
		if path == settingsAbs {
			win.ApplySettingsFile(path)
			return
		}
		if err := win.OpenFile(path); err != nil {
			logging.Logger().Error("reload", "path", path, "err", err)
		}
	})
	w.Start()
	return w
}

func fatal(err error) {
	log.Fatal(err)
}
