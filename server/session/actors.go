package session

import (
	"sort"

	"github.com/automoto/carball-mp/physics"
	"github.com/automoto/carball-mp/shared/gamemath"
	"github.com/automoto/carball-mp/shared/netcomponents"
	"github.com/automoto/carball-mp/shared/netconfig"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// Server-only actor components. They are never sent over the wire.
type bodyData struct {
	Handle physics.BodyHandle
}

// sentData is the transform last included in a broadcast.
type sentData struct {
	Transform netcomponents.NetTransformData
	Valid     bool
}

var (
	bodyComp = donburi.NewComponentType[bodyData]()
	sentComp = donburi.NewComponentType[sentData]()

	carTag  = donburi.NewTag().SetName("Car")
	ballTag = donburi.NewTag().SetName("Ball")

	actorQuery = donburi.NewQuery(filter.Contains(netcomponents.NetActor, netcomponents.NetTransform))
	carQuery   = donburi.NewQuery(filter.Contains(carTag))
)

// Actor is a read-only view of one simulated entity.
type Actor struct {
	netcomponents.NetActorData
	Transform gamemath.Transform
	Flags     netcomponents.NetFlagsData
	Body      physics.BodyHandle
}

// ActorRegistry owns a session's simulated entities. Each actor is a donburi
// entity carrying its identity, current and last-broadcast transforms, flags
// and physics body handle.
type ActorRegistry struct {
	world  donburi.World
	byID   map[netconfig.ActorID]donburi.Entity
	byBody map[physics.BodyHandle]netconfig.ActorID
	next   netconfig.ActorID
}

func NewActorRegistry() *ActorRegistry {
	return &ActorRegistry{
		world:  donburi.NewWorld(),
		byID:   make(map[netconfig.ActorID]donburi.Entity),
		byBody: make(map[physics.BodyHandle]netconfig.ActorID),
	}
}

// Add creates an actor and returns its id.
func (r *ActorRegistry) Add(data netcomponents.NetActorData, at gamemath.Transform, h physics.BodyHandle) netconfig.ActorID {
	r.next++
	data.ID = r.next

	kindTag := carTag
	if data.Kind == netconfig.ActorBall {
		kindTag = ballTag
	}
	entity := r.world.Create(netcomponents.NetActor, netcomponents.NetTransform, netcomponents.NetFlags, bodyComp, sentComp, kindTag)
	entry := r.world.Entry(entity)

	netcomponents.NetActor.Set(entry, &data)
	tr := netcomponents.FromTransform(at)
	netcomponents.NetTransform.Set(entry, &tr)
	bodyComp.Set(entry, &bodyData{Handle: h})

	r.byID[data.ID] = entity
	r.byBody[h] = data.ID
	return data.ID
}

// Remove deletes an actor. It reports whether the actor existed.
func (r *ActorRegistry) Remove(id netconfig.ActorID) (Actor, bool) {
	a, ok := r.Get(id)
	if !ok {
		return Actor{}, false
	}
	r.world.Remove(r.byID[id])
	delete(r.byID, id)
	delete(r.byBody, a.Body)
	return a, true
}

func (r *ActorRegistry) entry(id netconfig.ActorID) (*donburi.Entry, bool) {
	e, ok := r.byID[id]
	if !ok || !r.world.Valid(e) {
		return nil, false
	}
	return r.world.Entry(e), true
}

// Get returns a snapshot of an actor.
func (r *ActorRegistry) Get(id netconfig.ActorID) (Actor, bool) {
	entry, ok := r.entry(id)
	if !ok {
		return Actor{}, false
	}
	return view(entry), true
}

func view(entry *donburi.Entry) Actor {
	return Actor{
		NetActorData: *netcomponents.NetActor.Get(entry),
		Transform:    netcomponents.NetTransform.Get(entry).Transform(),
		Flags:        *netcomponents.NetFlags.Get(entry),
		Body:         bodyComp.Get(entry).Handle,
	}
}

// ByBody maps a physics body back to its actor.
func (r *ActorRegistry) ByBody(h physics.BodyHandle) (netconfig.ActorID, bool) {
	id, ok := r.byBody[h]
	return id, ok
}

// SetTransform records an actor's current transform.
func (r *ActorRegistry) SetTransform(id netconfig.ActorID, t gamemath.Transform) {
	if entry, ok := r.entry(id); ok {
		tr := netcomponents.FromTransform(t)
		netcomponents.NetTransform.Set(entry, &tr)
	}
}

// SetFlag updates a named flag and reports whether it changed.
func (r *ActorRegistry) SetFlag(id netconfig.ActorID, name string, v bool) (netcomponents.NetFlagsData, bool) {
	entry, ok := r.entry(id)
	if !ok {
		return netcomponents.NetFlagsData{}, false
	}
	flags := netcomponents.NetFlags.Get(entry)
	changed := flags.Set(name, v)
	return *flags, changed
}

// Each visits every actor in id order.
func (r *ActorRegistry) Each(fn func(Actor)) {
	for _, entry := range r.sorted() {
		fn(view(entry))
	}
}

func (r *ActorRegistry) sorted() []*donburi.Entry {
	var entries []*donburi.Entry
	actorQuery.Each(r.world, func(entry *donburi.Entry) {
		entries = append(entries, entry)
	})
	sort.Slice(entries, func(i, j int) bool {
		return netcomponents.NetActor.Get(entries[i]).ID < netcomponents.NetActor.Get(entries[j]).ID
	})
	return entries
}

// Cars returns the number of car actors.
func (r *ActorRegistry) Cars() int {
	return carQuery.Count(r.world)
}

func (r *ActorRegistry) Len() int {
	return len(r.byID)
}
