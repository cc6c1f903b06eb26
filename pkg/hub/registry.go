package hub

import "sync"

// Registry tracks each live connection: an entry is created at transport
// connect, carries an optional identity once user_join arrives, and holds
// the connection's set of joined rooms. The room-set is mutated only by the
// hub's subscribe/unsubscribe primitives so it never diverges from the
// actual broadcast groups.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*entry
	order []string // conn ids of identified connections, in user_join order
}

type entry struct {
	username   string
	identified bool
	rooms      map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*entry)}
}

// Connect creates an entry with no identity and an empty room-set. It is a
// no-op if the connection is already tracked.
func (r *Registry) Connect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		return
	}
	r.conns[connID] = &entry{rooms: make(map[string]struct{})}
}

// Register records the connection's identity. Registering again overwrites
// the identity but keeps the room-set and the roster position.
func (r *Registry) Register(connID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		e = &entry{rooms: make(map[string]struct{})}
		r.conns[connID] = e
	}
	e.username = username
	if !e.identified {
		e.identified = true
		r.order = append(r.order, connID)
	}
}

// Unregister removes the entry and reports the identity and room-set it
// held. identified is false when the connection never sent user_join.
// Unregistering an unknown connection is a no-op.
func (r *Registry) Unregister(connID string) (username string, rooms []string, identified bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return "", nil, false
	}
	delete(r.conns, connID)
	if e.identified {
		for i, id := range r.order {
			if id == connID {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	for room := range e.rooms {
		rooms = append(rooms, room)
	}
	return e.username, rooms, e.identified
}

// LookupUser resolves a connection to its identity. ok is false for unknown
// or unauthenticated connections.
func (r *Registry) LookupUser(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok || !e.identified {
		return "", false
	}
	return e.username, true
}

// Roster returns the online identities in registration order, one entry per
// identified connection. Duplicate identities are kept.
func (r *Registry) Roster() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roster := make([]string, 0, len(r.order))
	for _, id := range r.order {
		roster = append(roster, r.conns[id].username)
	}
	return roster
}

// Rooms returns a copy of the connection's room-set.
func (r *Registry) Rooms(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(e.rooms))
	for room := range e.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (r *Registry) addRoom(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.conns[connID]; ok {
		e.rooms[room] = struct{}{}
	}
}

func (r *Registry) removeRoom(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.conns[connID]; ok {
		delete(e.rooms, room)
	}
}
