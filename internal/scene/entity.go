// Package scene is the small engine layer the viewer drives: entities with
// local transforms arranged in a hierarchy, perspective cameras and
// parameterised materials.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"splatviewer/internal/mathutil"
)

// Entity is a node in the scene graph.
type Entity struct {
	Name    string
	Enabled bool

	position mgl64.Vec3
	rotation mgl64.Quat
	scale    mgl64.Vec3

	parent   *Entity
	children []*Entity

	// Optional components.
	Camera   *Camera
	Material *Material
	Points   []mgl64.Vec3 // local-space preview points (splat proxy)
}

// NewEntity creates an enabled entity with an identity transform.
func NewEntity(name string) *Entity {
	return &Entity{
		Name:     name,
		Enabled:  true,
		rotation: mgl64.QuatIdent(),
		scale:    mgl64.Vec3{1, 1, 1},
	}
}

// AddChild reparents c under e.
func (e *Entity) AddChild(c *Entity) {
	if c == nil || c == e {
		return
	}
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	c.parent = e
	e.children = append(e.children, c)
}

func (e *Entity) removeChild(c *Entity) {
	for i, ch := range e.children {
		if ch == c {
			e.children = append(e.children[:i], e.children[i+1:]...)
			c.parent = nil
			return
		}
	}
}

// Parent returns the parent entity or nil for a root.
func (e *Entity) Parent() *Entity { return e.parent }

// Children returns the direct children.
func (e *Entity) Children() []*Entity { return e.children }

// FindByName does a depth-first search of e and its descendants.
func (e *Entity) FindByName(name string) *Entity {
	if e.Name == name {
		return e
	}
	for _, c := range e.children {
		if f := c.FindByName(name); f != nil {
			return f
		}
	}
	return nil
}

// Walk visits e and every descendant in depth-first order.
func (e *Entity) Walk(fn func(*Entity)) {
	fn(e)
	for _, c := range e.children {
		c.Walk(fn)
	}
}

// EnabledInHierarchy reports whether e and all of its ancestors are enabled.
func (e *Entity) EnabledInHierarchy() bool {
	for n := e; n != nil; n = n.parent {
		if !n.Enabled {
			return false
		}
	}
	return true
}

func (e *Entity) LocalPosition() mgl64.Vec3 { return e.position }
func (e *Entity) LocalRotation() mgl64.Quat { return e.rotation }
func (e *Entity) LocalScale() mgl64.Vec3    { return e.scale }

func (e *Entity) SetLocalPosition(p mgl64.Vec3) { e.position = p }
func (e *Entity) SetLocalRotation(q mgl64.Quat) { e.rotation = q.Normalize() }
func (e *Entity) SetLocalScale(s mgl64.Vec3)    { e.scale = s }

// LocalTransform returns T * R * S.
func (e *Entity) LocalTransform() mgl64.Mat4 {
	t := mgl64.Translate3D(e.position.X(), e.position.Y(), e.position.Z())
	s := mgl64.Scale3D(e.scale.X(), e.scale.Y(), e.scale.Z())
	return t.Mul4(e.rotation.Mat4()).Mul4(s)
}

// WorldTransform composes the local transforms from the root down.
func (e *Entity) WorldTransform() mgl64.Mat4 {
	m := e.LocalTransform()
	for p := e.parent; p != nil; p = p.parent {
		m = p.LocalTransform().Mul4(m)
	}
	return m
}

// Position returns the world-space position.
func (e *Entity) Position() mgl64.Vec3 {
	return e.WorldTransform().Col(3).Vec3()
}

// Rotation returns the world-space rotation, ignoring scale.
func (e *Entity) Rotation() mgl64.Quat {
	q := e.rotation
	for p := e.parent; p != nil; p = p.parent {
		q = p.rotation.Mul(q)
	}
	return q.Normalize()
}

// SetPosition places e at a world-space position.
func (e *Entity) SetPosition(p mgl64.Vec3) {
	if e.parent == nil {
		e.position = p
		return
	}
	inv := e.parent.WorldTransform().Inv()
	e.position = mgl64.TransformCoordinate(p, inv)
}

// SetRotation sets the world-space rotation.
func (e *Entity) SetRotation(q mgl64.Quat) {
	if e.parent == nil {
		e.rotation = q.Normalize()
		return
	}
	e.rotation = e.parent.Rotation().Inverse().Mul(q).Normalize()
}

// SetEulerAngles sets the world-space rotation from degrees.
func (e *Entity) SetEulerAngles(pitch, yaw, roll float64) {
	e.SetRotation(mathutil.EulerToQuat(pitch, yaw, roll))
}

// LookAt rotates e so that its forward axis (-Z) points at target with +Y up.
// Degenerate cases (target at the entity position) leave rotation unchanged.
func (e *Entity) LookAt(target mgl64.Vec3) {
	eye := e.Position()
	dir := target.Sub(eye)
	if dir.Len() < 1e-9 {
		return
	}
	up := mgl64.Vec3{0, 1, 0}
	if d := dir.Normalize(); d.Cross(up).Len() < 1e-9 {
		up = mgl64.Vec3{0, 0, -1}
	}
	view := mgl64.LookAtV(eye, target, up)
	world := view.Mat3().Transpose().Mat4()
	e.SetRotation(mgl64.Mat4ToQuat(world))
}

// Forward is the world-space -Z axis of e.
func (e *Entity) Forward() mgl64.Vec3 {
	return e.Rotation().Rotate(mgl64.Vec3{0, 0, -1})
}
