package render

import (
	"image/color"

	"diagram-display/pkg/colorutil"
)

// Theme holds the colours and switches used to draw a frame.
type Theme struct {
	ControlBackground color.NRGBA
	// EmptyBackground is used when no diagram is shown.
	EmptyBackground color.NRGBA
	GridColor       color.NRGBA
	BorderColor     color.NRGBA
	SelectionColor  color.NRGBA
	// ParentColor outlines the containers of a drilled-into selection.
	ParentColor    color.NRGBA
	CaptionColor   color.NRGBA
	GripFill       color.NRGBA
	GripLine       color.NRGBA
	ScrollBar      color.NRGBA
	ScrollThumb    color.NRGBA
	GridSize       int
	ShowGrid       bool
	SelectionWidth float64
}

// DefaultTheme returns the built-in colours.
func DefaultTheme() Theme {
	return Theme{
		ControlBackground: colorutil.Gray,
		EmptyBackground:   colorutil.LightGray,
		GridColor:         colorutil.WithAlpha(colorutil.Gray, 64),
		BorderColor:       colorutil.DarkGray,
		SelectionColor:    colorutil.Orange,
		ParentColor:       colorutil.Lighten(colorutil.Orange, 0.5),
		CaptionColor:      colorutil.WithAlpha(colorutil.Blue, 160),
		GripFill:          colorutil.White,
		GripLine:          colorutil.Black,
		ScrollBar:         colorutil.WithAlpha(colorutil.DarkGray, 64),
		ScrollThumb:       colorutil.WithAlpha(colorutil.DarkGray, 160),
		GridSize:          20,
		ShowGrid:          true,
		SelectionWidth:    2,
	}
}
