package scene

// Material holds named shader parameters. Renderers read them; scripts such
// as the crossfade write them each frame.
type Material struct {
	params map[string]any
}

func NewMaterial() *Material {
	return &Material{params: make(map[string]any)}
}

// SetParameter stores a value under name, replacing any previous value.
func (m *Material) SetParameter(name string, v any) {
	if m.params == nil {
		m.params = make(map[string]any)
	}
	m.params[name] = v
}

// Parameter returns the value stored under name.
func (m *Material) Parameter(name string) (any, bool) {
	v, ok := m.params[name]
	return v, ok
}

// Float returns a float64 parameter, or 0 when absent or of another type.
func (m *Material) Float(name string) float64 {
	v, _ := m.params[name].(float64)
	return v
}
