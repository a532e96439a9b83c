package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective projection attached to an entity.
type Camera struct {
	FOV    float64 // vertical, degrees
	Near   float64
	Far    float64
	Aspect float64

	entity *Entity
}

// AttachCamera adds a camera component to e and returns it.
func AttachCamera(e *Entity, fov float64) *Camera {
	c := &Camera{FOV: fov, Near: 0.1, Far: 1000, Aspect: 1, entity: e}
	e.Camera = c
	return c
}

// Entity returns the owning entity.
func (c *Camera) Entity() *Entity { return c.entity }

// ViewMatrix is the inverse of the owner's world transform.
func (c *Camera) ViewMatrix() mgl64.Mat4 {
	if c.entity == nil {
		return mgl64.Ident4()
	}
	return c.entity.WorldTransform().Inv()
}

// ProjectionMatrix returns an OpenGL-style perspective matrix.
func (c *Camera) ProjectionMatrix() mgl64.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return mgl64.Perspective(mgl64.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// ViewProjection returns projection × view.
func (c *Camera) ViewProjection() mgl64.Mat4 {
	return c.ProjectionMatrix().Mul4(c.ViewMatrix())
}

// WorldToScreen projects a world point into a width×height screen with the
// origin at the top-left. Z is the view-space depth: positive in front of
// the camera, zero or negative at or behind it. X and Y are NaN or infinite
// when the point sits on the camera plane.
func (c *Camera) WorldToScreen(p mgl64.Vec3, width, height float64) mgl64.Vec3 {
	return ProjectVP(c.ViewProjection(), p, width, height)
}

// ProjectVP projects p with a precomputed view-projection matrix.
func ProjectVP(vp mgl64.Mat4, p mgl64.Vec3, width, height float64) mgl64.Vec3 {
	clip := vp.Mul4x1(p.Vec4(1))
	w := clip.W()
	if w == 0 {
		return mgl64.Vec3{math.NaN(), math.NaN(), 0}
	}
	ndcX := clip.X() / w
	ndcY := clip.Y() / w
	return mgl64.Vec3{
		(ndcX + 1) * 0.5 * width,
		(1 - ndcY) * 0.5 * height,
		w,
	}
}
