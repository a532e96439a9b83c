package raster

import "math"

// LightConfig holds the tone parameters applied to every splat.
type LightConfig struct {
	Exposure float64
	DepthCue float64 // brightness falloff per unit of view depth
	MinShade float64
	Gamma    float64 // display gamma used to re-encode toned colour
}

// DefaultLightConfig returns the standard turntable look.
func DefaultLightConfig() LightConfig {
	return LightConfig{Exposure: 1.05, DepthCue: 0.02, MinShade: 0.35, Gamma: 2.2}
}

// DepthShade returns the brightness multiplier for a point at view depth w.
// Points behind the eye get full brightness; distant points bottom out at
// MinShade.
func (lc *LightConfig) DepthShade(w float64) float64 {
	return math.Max(lc.MinShade, 1/(1+lc.DepthCue*math.Max(0, w)))
}

// Tone shades a point colour in linear light, compresses it with the ACES
// filmic curve and re-encodes it to 0..255.
func (lc *LightConfig) Tone(r, g, b uint8, shade float64) (float64, float64, float64) {
	k := shade * lc.Exposure
	inv := 1 / lc.Gamma
	enc := func(c uint8) float64 {
		return math.Pow(ACESTonemap(decodeSRGB[c]*k), inv) * 255
	}
	return enc(r), enc(g), enc(b)
}

// decodeSRGB maps an 8-bit channel to linear light.
var decodeSRGB = func() (lut [256]float64) {
	for i := range lut {
		lut[i] = math.Pow(float64(i)/255, 2.2)
	}
	return lut
}()

// ACESTonemap applies the ACES filmic curve to a linear value.
func ACESTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}
