package viewer

import "splatviewer/internal/overlay"

// Glyph metrics of the debug font the host draws labels with.
const (
	glyphWidth  = 6
	glyphHeight = 16
	labelPad    = 4
)

// Label is the overlay element for one point of interest.
type Label struct {
	Entry   overlay.Entry
	Visible bool
	Left    float64
	Top     float64

	w, h float64
}

// NewLabel sizes a label to fit its title.
func NewLabel(e overlay.Entry) *Label {
	return &Label{
		Entry: e,
		w:     float64(len([]rune(e.Title))*glyphWidth + 2*labelPad),
		h:     glyphHeight + 2*labelPad,
	}
}

func (l *Label) SetVisible(v bool)       { l.Visible = v }
func (l *Label) Place(left, top float64) { l.Left, l.Top = left, top }
func (l *Label) Size() (w, h float64)    { return l.w, l.h }
func (l *Label) Center() (x, y float64)  { return l.Left + l.w/2, l.Top + l.h/2 }
