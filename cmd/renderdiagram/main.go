// Command renderdiagram renders a diagram file to a PNG or TIFF image
// without a window.
package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"diagram-display/internal/app"
	"diagram-display/internal/config"
	"diagram-display/internal/logging"
	"diagram-display/internal/project"

	"github.com/gregoryv/cmdline"
	"golang.org/x/image/tiff"
)

type options struct {
	input     string
	output    string
	settings  string
	width     int
	height    int
	zoom      int
	fit       bool
	selectAll bool
	hide      string
}

func main() {
	var (
		cli   = cmdline.NewBasicParser()
		debug = cli.Flag("-d, --debug")
		opts  = options{
			output:    cli.Option("-o, --output").String("diagram.png"),
			settings:  cli.Option("-s, --settings").String(""),
			width:     cli.Option("-W, --width").Int(1024),
			height:    cli.Option("-H, --height").Int(768),
			zoom:      cli.Option("-z, --zoom").Int(100),
			fit:       cli.Flag("-f, --fit"),
			selectAll: cli.Flag("-a, --select-all"),
			hide:      cli.Option("--hide-layer").String(""),
			input:     cli.NamedArg("FILE").String(""),
		}
	)
	u := cli.Usage()
	u.Preface("Render a diagram file, or the sample diagram, to PNG or TIFF")
	cli.Parse()

	logging.SetLogger(logging.NewTextLogger(debug))
	if err := run(opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(opts options, w io.Writer) error {
	f := project.Sample()
	settingsPath := opts.settings
	if opts.input != "" {
		var err error
		if f, err = project.Load(opts.input); err != nil {
			return err
		}
		if settingsPath == "" {
			settingsPath = f.GetSettingsPath(opts.input)
		}
	}

	settings := config.Default()
	if settingsPath != "" {
		var err error
		if settings, err = config.LoadOrDefault(settingsPath); err != nil {
			return err
		}
	}

	d, err := app.NewDisplay(app.Options{Settings: settings})
	if err != nil {
		return err
	}
	defer d.Close()

	diagram, err := f.Build(d.Repository())
	if err != nil {
		return err
	}
	d.SetDiagram(diagram)
	d.Viewport().SetDrawBounds(opts.width, opts.height)

	if opts.hide != "" {
		if err := d.SetLayersHidden(true, opts.hide); err != nil {
			return err
		}
	}
	if opts.fit {
		err = d.Viewport().ZoomToFit()
	} else {
		err = d.Viewport().SetZoom(opts.zoom)
	}
	if err != nil {
		return err
	}
	if opts.selectAll {
		if err := d.Selection().SelectAll(); err != nil {
			return err
		}
	}

	start := time.Now()
	s, err := d.Render(opts.width, opts.height)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	if err := save(s.Image(), opts.output); err != nil {
		return err
	}

	fmt.Fprintf(w, "Diagram %q: %dx%d, %d shapes\n", diagram.Name, diagram.Width, diagram.Height, diagram.Len())
	fmt.Fprintf(w, "Zoom: %d%%  Selected: %d\n", d.Viewport().ZoomPercent(), d.Selection().Count())
	fmt.Fprintf(w, "Rendered %dx%d in %v to %s\n", opts.width, opts.height, elapsed.Round(time.Microsecond), opts.output)
	return nil
}

// save writes img as TIFF when path ends in .tif or .tiff, as PNG otherwise.
func save(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
