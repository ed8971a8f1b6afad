// Package project reads and writes diagram files (.diagram.json).
package project

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"diagram-display/internal/errs"
	"diagram-display/internal/repository"
	"diagram-display/internal/shape"
	"diagram-display/pkg/colorutil"
	"diagram-display/pkg/geometry"
)

// Shape type names used in diagram files.
const (
	TypeBox       = "box"
	TypeGroup     = "group"
	TypeAggregate = "aggregate"
)

// File represents a diagram file.
type File struct {
	Version     int       `json:"version"`
	Name        string    `json:"name"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	Description string    `json:"description,omitempty"`

	// Display settings file (relative to the diagram file)
	SettingsPath string `json:"settings,omitempty"`

	Diagram DiagramSpec `json:"diagram"`
}

// DiagramSpec describes one page.
type DiagramSpec struct {
	Name       string      `json:"name"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Background string      `json:"background,omitempty"`
	Layers     []LayerSpec `json:"layers,omitempty"`
	Shapes     []ShapeSpec `json:"shapes"`
}

// LayerSpec describes one layer. Zoom thresholds are percentages, zero meaning unbounded.
type LayerSpec struct {
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	Hidden    bool   `json:"hidden,omitempty"`
	Active    bool   `json:"active,omitempty"`
	LowerZoom int    `json:"lower_zoom,omitempty"`
	UpperZoom int    `json:"upper_zoom,omitempty"`
}

// ShapeSpec describes a box or a container. Rect, Caption and the colours
// apply to boxes only; Children to containers only.
type ShapeSpec struct {
	Type     string         `json:"type"`
	Template string         `json:"template,omitempty"`
	Layers   []string       `json:"layers,omitempty"`
	Rect     *geometry.Rect `json:"rect,omitempty"`
	Caption  string         `json:"caption,omitempty"`
	Fill     string         `json:"fill,omitempty"`
	Line     string         `json:"line,omitempty"`
	Children []ShapeSpec    `json:"children,omitempty"`
}

// New creates an empty diagram file.
func New(name string, width, height int) *File {
	now := time.Now()
	return &File{
		Version:  1,
		Name:     name,
		Created:  now,
		Modified: now,
		Diagram:  DiagramSpec{Name: name, Width: width, Height: height},
	}
}

// Load loads a diagram file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &f, nil
}

// Save saves the file.
func (f *File) Save(path string) error {
	f.Modified = time.Now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetSettingsPath returns the absolute path to the display settings, or ""
// when the file names none.
func (f *File) GetSettingsPath(path string) string {
	if f.SettingsPath == "" {
		return ""
	}
	if filepath.IsAbs(f.SettingsPath) {
		return f.SettingsPath
	}
	return filepath.Join(filepath.Dir(path), f.SettingsPath)
}

// Build creates the diagram and stores it in repo.
func (f *File) Build(repo *repository.Repository) (*shape.Diagram, error) {
	spec := f.Diagram
	if spec.Name == "" {
		spec.Name = f.Name
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("diagram %q size %dx%d: %w", spec.Name, spec.Width, spec.Height, errs.ErrInvalidParameter)
	}

	d := shape.NewDiagram(spec.Name, spec.Width, spec.Height)
	if spec.Background != "" {
		c, err := colorutil.ParseHex(spec.Background)
		if err != nil {
			return nil, fmt.Errorf("diagram background: %w", err)
		}
		d.Background = c
	}

	for _, ls := range spec.Layers {
		l, err := d.Layers().Add(ls.Name)
		if err != nil {
			return nil, err
		}
		if ls.Title != "" {
			l.Title = ls.Title
		}
		l.Hidden = ls.Hidden
		l.LowerZoomThreshold = ls.LowerZoom
		l.UpperZoomThreshold = ls.UpperZoom
		if ls.Active {
			d.Layers().SetActive(d.Layers().Active() | l.ID)
		}
	}

	for i, ss := range spec.Shapes {
		s, err := buildShape(d, ss)
		if err != nil {
			return nil, fmt.Errorf("shape %d: %w", i, err)
		}
		d.Add(s)
	}

	if err := repo.AddDiagram(d); err != nil {
		return nil, err
	}
	return d, nil
}

func buildShape(d *shape.Diagram, ss ShapeSpec) (shape.Shape, error) {
	var s shape.Shape
	switch ss.Type {
	case TypeBox:
		if ss.Rect == nil {
			return nil, fmt.Errorf("box without rect: %w", errs.ErrInvalidParameter)
		}
		b := shape.NewBox(ss.Rect.X, ss.Rect.Y, ss.Rect.Width, ss.Rect.Height)
		b.Caption = ss.Caption
		if err := parseColor(ss.Fill, &b.Fill); err != nil {
			return nil, err
		}
		if err := parseColor(ss.Line, &b.Line); err != nil {
			return nil, err
		}
		s = b
	case TypeGroup, TypeAggregate:
		if len(ss.Children) == 0 {
			return nil, fmt.Errorf("%s without children: %w", ss.Type, errs.ErrInvalidParameter)
		}
		children := make([]shape.Shape, 0, len(ss.Children))
		for i, cs := range ss.Children {
			c, err := buildShape(d, cs)
			if err != nil {
				return nil, fmt.Errorf("child %d: %w", i, err)
			}
			children = append(children, c)
		}
		if ss.Type == TypeGroup {
			s = shape.NewGroup(children...)
		} else {
			s = shape.NewAggregate(children...)
		}
	default:
		return nil, fmt.Errorf("shape type %q: %w", ss.Type, errs.ErrInvalidParameter)
	}

	if t, ok := s.(templated); ok && ss.Template != "" {
		t.SetTemplateName(ss.Template)
	}
	if len(ss.Layers) > 0 {
		s.SetLayers(d.Layers().IDsOf(ss.Layers...))
	}
	return s, nil
}

type templated interface {
	SetTemplateName(name string)
}

func parseColor(hex string, dst *color.NRGBA) error {
	if hex == "" {
		return nil
	}
	c, err := colorutil.ParseHex(hex)
	if err != nil {
		return err
	}
	*dst = c
	return nil
}

// FromDiagram describes d so that it can be saved.
func FromDiagram(d *shape.Diagram) *File {
	f := New(d.Name, d.Width, d.Height)
	f.Diagram.Background = colorutil.Hex(d.Background)
	for _, l := range d.Layers().Layers() {
		f.Diagram.Layers = append(f.Diagram.Layers, LayerSpec{
			Name:      l.Name,
			Title:     l.Title,
			Hidden:    l.Hidden,
			Active:    d.Layers().Active().Has(l.ID),
			LowerZoom: l.LowerZoomThreshold,
			UpperZoom: l.UpperZoomThreshold,
		})
	}
	for _, s := range d.Shapes() {
		if ss, ok := describe(d, s); ok {
			f.Diagram.Shapes = append(f.Diagram.Shapes, ss)
		}
	}
	return f
}

func describe(d *shape.Diagram, s shape.Shape) (ShapeSpec, bool) {
	var ss ShapeSpec
	switch v := s.(type) {
	case *shape.Box:
		r := v.Rect
		ss = ShapeSpec{
			Type:    TypeBox,
			Rect:    &r,
			Caption: v.Caption,
			Fill:    colorutil.Hex(v.Fill),
			Line:    colorutil.Hex(v.Line),
		}
		if v.TemplateName() != shape.BoxTypeName {
			ss.Template = v.TemplateName()
		}
	case *shape.Container:
		ss.Type = TypeGroup
		if shape.Has(v, shape.Composite) {
			ss.Type = TypeAggregate
		}
		if v.TemplateName() != v.TypeName() {
			ss.Template = v.TemplateName()
		}
		for _, c := range v.Children() {
			if cs, ok := describe(d, c); ok {
				ss.Children = append(ss.Children, cs)
			}
		}
	default:
		return ss, false
	}
	for _, l := range d.Layers().Layers() {
		if s.Layers().Has(l.ID) {
			ss.Layers = append(ss.Layers, l.Name)
		}
	}
	return ss, true
}

// Sample returns the demonstration diagram shown when no file is given.
func Sample() *File {
	box := func(x, y, w, h int, caption string, layers ...string) ShapeSpec {
		return ShapeSpec{Type: TypeBox, Rect: &geometry.Rect{X: x, Y: y, Width: w, Height: h}, Caption: caption, Layers: layers}
	}
	f := New("sample", 1200, 900)
	f.Description = "Boxes, a group, an aggregate and a detail layer"
	f.Diagram.Layers = []LayerSpec{
		{Name: "main", Title: "Main", Active: true},
		{Name: "detail", Title: "Details", LowerZoom: 75},
	}
	f.Diagram.Shapes = []ShapeSpec{
		box(80, 80, 160, 90, "Source", "main"),
		box(420, 80, 160, 90, "Filter", "main"),
		box(760, 80, 160, 90, "Sink", "main"),
		{Type: TypeGroup, Layers: []string{"main"}, Children: []ShapeSpec{
			box(80, 320, 140, 80, "Parser", "main"),
			box(260, 320, 140, 80, "Lexer", "main"),
			{Type: TypeGroup, Layers: []string{"main"}, Children: []ShapeSpec{
				box(80, 440, 140, 60, "Tokens", "main"),
				box(260, 440, 140, 60, "Errors", "main"),
			}},
		}},
		{Type: TypeAggregate, Template: "Cache", Layers: []string{"main"}, Children: []ShapeSpec{
			box(620, 320, 200, 120, "Cache", "main"),
			box(640, 400, 160, 30, "LRU", "main"),
		}},
		box(420, 620, 400, 160, "Notes", "detail"),
	}
	return f
}
