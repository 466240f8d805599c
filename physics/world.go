// Package physics is the rigid-body world the simulation steps. World is the
// contract a session consumes; Space is the resolv-backed implementation.
package physics

import (
	"time"

	"github.com/automoto/carball-mp/shared/gamemath"
)

// BodyHandle identifies a body inside one world. The zero handle is never issued.
type BodyHandle uint32

// BodyKind selects how a body takes part in the simulation.
type BodyKind int

const (
	Dynamic BodyKind = iota
	Static
)

// BodyProps are the physical properties of a body.
type BodyProps struct {
	Mass           float64
	Restitution    float64
	LinearDamping  float64
	AngularDamping float64
}

// World is a 2D rigid-body simulation.
type World interface {
	CreateBody(kind BodyKind, geom gamemath.Geometry, props BodyProps, at gamemath.Transform) BodyHandle
	DestroyBody(h BodyHandle)
	Step(dt time.Duration, velocityIterations, positionIterations int)

	Transform(h BodyHandle) gamemath.Transform
	// SetTransform teleports a body and clears its velocity.
	SetTransform(h BodyHandle, t gamemath.Transform)
	Velocity(h BodyHandle) gamemath.Vec2
	SetVelocity(h BodyHandle, v gamemath.Vec2)
	SetAngularVelocity(h BodyHandle, w float64)
	// ApplyImpulse applies impulse at a world point; off-center points spin the body.
	ApplyImpulse(h BodyHandle, impulse, point gamemath.Vec2)

	SetContactListener(l ContactListener)
}

// ContactListener receives contact callbacks during Step.
type ContactListener interface {
	BeginContact(a, b BodyHandle)
	PreSolve(a, b BodyHandle)
	PostSolve(a, b BodyHandle)
	EndContact(a, b BodyHandle)
}

// ContactFuncs adapts plain functions to ContactListener. Nil fields are skipped.
type ContactFuncs struct {
	OnBegin     func(a, b BodyHandle)
	OnPreSolve  func(a, b BodyHandle)
	OnPostSolve func(a, b BodyHandle)
	OnEnd       func(a, b BodyHandle)
}

func (f ContactFuncs) BeginContact(a, b BodyHandle) {
	if f.OnBegin != nil {
		f.OnBegin(a, b)
	}
}

func (f ContactFuncs) PreSolve(a, b BodyHandle) {
	if f.OnPreSolve != nil {
		f.OnPreSolve(a, b)
	}
}

func (f ContactFuncs) PostSolve(a, b BodyHandle) {
	if f.OnPostSolve != nil {
		f.OnPostSolve(a, b)
	}
}

func (f ContactFuncs) EndContact(a, b BodyHandle) {
	if f.OnEnd != nil {
		f.OnEnd(a, b)
	}
}
