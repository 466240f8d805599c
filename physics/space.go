package physics

import (
	"math"
	"time"

	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/solarlune/resolv"
)

const (
	tagDynamic = "dynamic"
	tagStatic  = "static"

	penetrationSlop = 0.5
	correction      = 0.8

	// Below these a body comes to rest.
	restSpeed = 0.01
	restSpin  = 0.001
)

type body struct {
	handle BodyHandle
	kind   BodyKind
	geom   gamemath.Geometry
	props  BodyProps

	invMass    float64
	invInertia float64

	pos    gamemath.Vec2
	angle  float64
	vel    gamemath.Vec2
	angVel float64

	obj *resolv.Object
}

type pair struct {
	a, b BodyHandle
}

func makePair(a, b BodyHandle) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

type contact struct {
	a, b   *body
	normal gamemath.Vec2 // from a to b
	depth  float64
}

// Space is a World backed by a resolv.Space broadphase with a simple
// impulse solver. Walls are Static bodies; everything else is Dynamic.
type Space struct {
	space    *resolv.Space
	bodies   map[BodyHandle]*body
	byObject map[*resolv.Object]*body
	next     BodyHandle

	listener ContactListener
	touching map[pair]bool
}

// NewSpace creates an empty world covering width x height with the given
// broadphase cell size.
func NewSpace(width, height float64, cellSize int) *Space {
	return &Space{
		space:    resolv.NewSpace(int(math.Ceil(width)), int(math.Ceil(height)), cellSize, cellSize),
		bodies:   make(map[BodyHandle]*body),
		byObject: make(map[*resolv.Object]*body),
		listener: ContactFuncs{},
		touching: make(map[pair]bool),
	}
}

var _ World = (*Space)(nil)

func (s *Space) CreateBody(kind BodyKind, geom gamemath.Geometry, props BodyProps, at gamemath.Transform) BodyHandle {
	s.next++
	b := &body{
		handle: s.next,
		kind:   kind,
		geom:   geom,
		props:  props,
		pos:    at.Pos,
		angle:  at.Angle,
	}
	if kind == Dynamic && props.Mass > 0 {
		b.invMass = 1 / props.Mass
		if inertia := momentOfInertia(geom, props.Mass); inertia > 0 {
			b.invInertia = 1 / inertia
		}
	}

	// Dynamic bodies get a square around their bounding circle so rotation
	// never moves them out of their broadphase cells.
	tag := tagDynamic
	hw, hh := geom.Extents()
	if kind == Dynamic {
		r := geom.BoundingRadius()
		hw, hh = r, r
	} else {
		tag = tagStatic
	}
	b.obj = resolv.NewObject(at.Pos.X-hw, at.Pos.Y-hh, 2*hw, 2*hh, tag)
	b.obj.SetShape(resolv.NewRectangle(0, 0, 2*hw, 2*hh))
	s.space.Add(b.obj)

	s.bodies[b.handle] = b
	s.byObject[b.obj] = b
	return b.handle
}

func momentOfInertia(g gamemath.Geometry, mass float64) float64 {
	if g.Kind == gamemath.GeometryCircle {
		return mass * g.Radius * g.Radius / 2
	}
	w, h := 2*g.HalfWidth, 2*g.HalfHeight
	return mass * (w*w + h*h) / 12
}

func (s *Space) DestroyBody(h BodyHandle) {
	b, ok := s.bodies[h]
	if !ok {
		return
	}
	for p := range s.touching {
		if p.a == h || p.b == h {
			delete(s.touching, p)
			s.listener.EndContact(p.a, p.b)
		}
	}
	s.space.Remove(b.obj)
	delete(s.byObject, b.obj)
	delete(s.bodies, h)
}

func (s *Space) Transform(h BodyHandle) gamemath.Transform {
	if b, ok := s.bodies[h]; ok {
		return gamemath.Transform{Pos: b.pos, Angle: b.angle}
	}
	return gamemath.Transform{}
}

func (s *Space) SetTransform(h BodyHandle, t gamemath.Transform) {
	b, ok := s.bodies[h]
	if !ok {
		return
	}
	b.pos = t.Pos
	b.angle = t.Angle
	b.vel = gamemath.Vec2{}
	b.angVel = 0
	s.sync(b)
}

func (s *Space) Velocity(h BodyHandle) gamemath.Vec2 {
	if b, ok := s.bodies[h]; ok {
		return b.vel
	}
	return gamemath.Vec2{}
}

func (s *Space) SetVelocity(h BodyHandle, v gamemath.Vec2) {
	if b, ok := s.bodies[h]; ok && b.kind == Dynamic {
		b.vel = v
	}
}

func (s *Space) SetAngularVelocity(h BodyHandle, w float64) {
	if b, ok := s.bodies[h]; ok && b.kind == Dynamic {
		b.angVel = w
	}
}

func (s *Space) ApplyImpulse(h BodyHandle, impulse, point gamemath.Vec2) {
	b, ok := s.bodies[h]
	if !ok || b.kind != Dynamic {
		return
	}
	b.vel = b.vel.Add(impulse.Scale(b.invMass))
	b.angVel += point.Sub(b.pos).Cross(impulse) * b.invInertia
}

func (s *Space) SetContactListener(l ContactListener) {
	if l == nil {
		l = ContactFuncs{}
	}
	s.listener = l
}

// Step advances the world by dt.
func (s *Space) Step(dt time.Duration, velocityIterations, positionIterations int) {
	secs := dt.Seconds()
	if secs <= 0 {
		return
	}

	for _, b := range s.bodies {
		if b.kind != Dynamic {
			continue
		}
		b.vel = b.vel.Scale(1 / (1 + secs*b.props.LinearDamping))
		b.angVel *= 1 / (1 + secs*b.props.AngularDamping)
		if b.vel.Len() < restSpeed {
			b.vel = gamemath.Vec2{}
		}
		if math.Abs(b.angVel) < restSpin {
			b.angVel = 0
		}
	}

	contacts := s.findContacts()
	s.updateTouching(contacts)

	for _, c := range contacts {
		s.listener.PreSolve(c.a.handle, c.b.handle)
	}
	for i := 0; i < velocityIterations; i++ {
		for _, c := range contacts {
			solveVelocity(c)
		}
	}
	for _, c := range contacts {
		s.listener.PostSolve(c.a.handle, c.b.handle)
	}

	for _, b := range s.bodies {
		if b.kind != Dynamic {
			continue
		}
		b.pos = b.pos.Add(b.vel.Scale(secs))
		if b.angVel != 0 {
			b.angle = gamemath.WrapAngle(b.angle + b.angVel*secs)
		}
	}

	for i := 0; i < positionIterations; i++ {
		for _, c := range contacts {
			solvePosition(c)
		}
	}

	for _, b := range s.bodies {
		if b.kind == Dynamic {
			s.sync(b)
		}
	}
}

func (s *Space) sync(b *body) {
	r := b.obj.W / 2
	b.obj.X = b.pos.X - r
	b.obj.Y = b.pos.Y - b.obj.H/2
	b.obj.Update()
}

// findContacts runs the resolv broadphase from every dynamic body and the
// shape test on each candidate pair once.
func (s *Space) findContacts() []contact {
	var out []contact
	seen := make(map[pair]bool)
	for _, a := range s.bodies {
		if a.kind != Dynamic {
			continue
		}
		check := a.obj.Check(0, 0)
		if check == nil {
			continue
		}
		for _, o := range check.Objects {
			b, ok := s.byObject[o]
			if !ok || b == a {
				continue
			}
			p := makePair(a.handle, b.handle)
			if seen[p] {
				continue
			}
			seen[p] = true

			first, second := a, b
			if first.handle != p.a {
				first, second = b, a
			}
			n, depth, hit := gamemath.Overlap(
				gamemath.Transform{Pos: first.pos, Angle: first.angle}, first.geom,
				gamemath.Transform{Pos: second.pos, Angle: second.angle}, second.geom,
			)
			if hit {
				out = append(out, contact{a: first, b: second, normal: n, depth: depth})
			}
		}
	}
	return out
}

func (s *Space) updateTouching(contacts []contact) {
	now := make(map[pair]bool, len(contacts))
	for _, c := range contacts {
		p := pair{c.a.handle, c.b.handle}
		now[p] = true
		if !s.touching[p] {
			s.listener.BeginContact(p.a, p.b)
		}
	}
	for p := range s.touching {
		if !now[p] {
			s.listener.EndContact(p.a, p.b)
		}
	}
	s.touching = now
}

func solveVelocity(c contact) {
	total := c.a.invMass + c.b.invMass
	if total == 0 {
		return
	}
	vn := c.b.vel.Sub(c.a.vel).Dot(c.normal)
	if vn >= 0 {
		return
	}
	e := math.Max(c.a.props.Restitution, c.b.props.Restitution)
	j := -(1 + e) * vn / total
	impulse := c.normal.Scale(j)
	c.a.vel = c.a.vel.Sub(impulse.Scale(c.a.invMass))
	c.b.vel = c.b.vel.Add(impulse.Scale(c.b.invMass))
}

func solvePosition(c contact) {
	total := c.a.invMass + c.b.invMass
	if total == 0 {
		return
	}
	n, depth, hit := gamemath.Overlap(
		gamemath.Transform{Pos: c.a.pos, Angle: c.a.angle}, c.a.geom,
		gamemath.Transform{Pos: c.b.pos, Angle: c.b.angle}, c.b.geom,
	)
	if !hit || depth <= penetrationSlop {
		return
	}
	push := n.Scale((depth - penetrationSlop) * correction / total)
	c.a.pos = c.a.pos.Sub(push.Scale(c.a.invMass))
	c.b.pos = c.b.pos.Add(push.Scale(c.b.invMass))
}
