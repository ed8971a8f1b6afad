// Package config loads the display settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"diagram-display/internal/errs"
	"diagram-display/internal/grip"
	"diagram-display/internal/input"
	"diagram-display/internal/render"
	"diagram-display/internal/viewport"
	"diagram-display/pkg/colorutil"

	"github.com/BurntSushi/toml"
)

const (
	appDir   = "diagram-display"
	fileName = "display.toml"
)

// Settings is the content of a display settings file. Missing keys keep
// their default values.
type Settings struct {
	Grip   GripSettings  `toml:"grip"`
	Grid   GridSettings  `toml:"grid"`
	View   ViewSettings  `toml:"view"`
	Input  InputSettings `toml:"input"`
	Colors ColorSettings `toml:"colors"`
}

type GripSettings struct {
	Radius  int    `toml:"radius"`
	Resize  string `toml:"resize"`
	Connect string `toml:"connect"`
}

type GridSettings struct {
	Size int  `toml:"size"`
	Show bool `toml:"show"`
}

type ViewSettings struct {
	Margin        int     `toml:"margin"`
	ScrollBarSize int     `toml:"scroll_bar_size"`
	ZoomStep      float64 `toml:"zoom_step"`
}

// InputSettings tune pointer handling. DeadZone and Slowdown apply to
// universal scrolling.
type InputSettings struct {
	DeadZone     int `toml:"dead_zone"`
	Slowdown     int `toml:"slowdown"`
	HitTolerance int `toml:"hit_tolerance"`
}

// ColorSettings holds "#rrggbb" or "#rrggbbaa" strings.
type ColorSettings struct {
	Background string `toml:"background"`
	Empty      string `toml:"empty"`
	Grid       string `toml:"grid"`
	Border     string `toml:"border"`
	Selection  string `toml:"selection"`
	Parent     string `toml:"parent"`
	Caption    string `toml:"caption"`
	GripFill   string `toml:"grip_fill"`
	GripLine   string `toml:"grip_line"`
}

// Default returns the built-in settings.
func Default() *Settings {
	th := render.DefaultTheme()
	return &Settings{
		Grip: GripSettings{
			Radius:  4,
			Resize:  grip.Square.String(),
			Connect: grip.Diamond.String(),
		},
		Grid: GridSettings{Size: th.GridSize, Show: th.ShowGrid},
		View: ViewSettings{
			Margin:        viewport.DefaultMargin,
			ScrollBarSize: viewport.DefaultScrollBarSize,
			ZoomStep:      viewport.DefaultZoomStep,
		},
		Input: InputSettings{
			DeadZone:     input.DefaultDeadZone,
			Slowdown:     input.DefaultSlowdown,
			HitTolerance: input.DefaultTolerance,
		},
		Colors: ColorSettings{
			Background: colorutil.Hex(th.ControlBackground),
			Empty:      colorutil.Hex(th.EmptyBackground),
			Grid:       colorutil.Hex(th.GridColor),
			Border:     colorutil.Hex(th.BorderColor),
			Selection:  colorutil.Hex(th.SelectionColor),
			Parent:     colorutil.Hex(th.ParentColor),
			Caption:    colorutil.Hex(th.CaptionColor),
			GripFill:   colorutil.Hex(th.GripFill),
			GripLine:   colorutil.Hex(th.GripLine),
		},
	}
}

// DefaultPath returns the settings file location under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, appDir, fileName)
}

// Load reads and validates the settings file at path.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Settings, error) {
	s, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return s, err
}

// Parse decodes settings from TOML text.
func Parse(data string) (*Settings, error) {
	s := Default()
	md, err := toml.Decode(data, s)
	if err != nil {
		return nil, fmt.Errorf("parse settings: %w (%w)", err, errs.ErrInvalidConfiguration)
	}
	if err := s.finish(md); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) finish(md toml.MetaData) error {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys %s: %w", strings.Join(keys, ", "), errs.ErrInvalidConfiguration)
	}
	return s.Validate()
}

// Write encodes the settings as TOML.
func (s *Settings) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(s)
}

// Validate checks every value. Errors wrap errs.ErrInvalidConfiguration.
func (s *Settings) Validate() error {
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}
	check(s.Grip.Radius > 0, "grip.radius %d must be positive", s.Grip.Radius)
	check(s.Grid.Size > 0, "grid.size %d must be positive", s.Grid.Size)
	check(s.View.Margin >= 0, "view.margin %d must not be negative", s.View.Margin)
	check(s.View.ScrollBarSize > 0, "view.scroll_bar_size %d must be positive", s.View.ScrollBarSize)
	check(s.View.ZoomStep > 1, "view.zoom_step %g must be greater than 1", s.View.ZoomStep)
	check(s.Input.DeadZone >= 0, "input.dead_zone %d must not be negative", s.Input.DeadZone)
	check(s.Input.Slowdown > 0, "input.slowdown %d must be positive", s.Input.Slowdown)
	check(s.Input.HitTolerance >= 0, "input.hit_tolerance %d must not be negative", s.Input.HitTolerance)
	if _, _, err := s.GripShapes(); err != nil {
		problems = append(problems, err)
	}
	if _, err := s.Theme(); err != nil {
		problems = append(problems, err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", errs.ErrInvalidConfiguration, errors.Join(problems...))
	}
	return nil
}

// GripShapes returns the resize and connection grip outlines.
func (s *Settings) GripShapes() (resize, connect grip.Shape, err error) {
	if resize, err = grip.ParseShape(s.Grip.Resize); err != nil {
		return 0, 0, fmt.Errorf("grip.resize: %w", err)
	}
	if connect, err = grip.ParseShape(s.Grip.Connect); err != nil {
		return 0, 0, fmt.Errorf("grip.connect: %w", err)
	}
	return resize, connect, nil
}

// Theme maps the colour and grid settings onto a render theme.
func (s *Settings) Theme() (render.Theme, error) {
	th := render.DefaultTheme()
	th.GridSize = s.Grid.Size
	th.ShowGrid = s.Grid.Show

	fields := []struct {
		key string
		val string
		dst *color.NRGBA
	}{
		{"colors.background", s.Colors.Background, &th.ControlBackground},
		{"colors.empty", s.Colors.Empty, &th.EmptyBackground},
		{"colors.grid", s.Colors.Grid, &th.GridColor},
		{"colors.border", s.Colors.Border, &th.BorderColor},
		{"colors.selection", s.Colors.Selection, &th.SelectionColor},
		{"colors.parent", s.Colors.Parent, &th.ParentColor},
		{"colors.caption", s.Colors.Caption, &th.CaptionColor},
		{"colors.grip_fill", s.Colors.GripFill, &th.GripFill},
		{"colors.grip_line", s.Colors.GripLine, &th.GripLine},
	}
	for _, f := range fields {
		c, err := colorutil.ParseHex(f.val)
		if err != nil {
			return render.Theme{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = c
	}
	return th, nil
}
