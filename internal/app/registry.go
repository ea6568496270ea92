package app

import (
	"log"
	"sync"

	"challenge-arena/internal/domain"
)

// Channel delivers events to one live connection. Send must not block.
type Channel interface {
	Send(event domain.Event) error
}

// Registry maps participants to their live channels and rooms.
// It is shared by every session; callers may hold a session lock while
// calling into it, but it never takes a session lock while holding its own.
type Registry struct {
	sessions SessionRepository

	mu       sync.RWMutex
	channels map[string]Channel
	rooms    map[string]string
	members  map[string]map[string]struct{}
}

func NewRegistry(sessions SessionRepository) *Registry {
	return &Registry{
		sessions: sessions,
		channels: make(map[string]Channel),
		rooms:    make(map[string]string),
		members:  make(map[string]map[string]struct{}),
	}
}

// Register binds ch to participantID, replacing any previous binding.
func (r *Registry) Register(participantID string, ch Channel) {
	r.mu.Lock()
	r.channels[participantID] = ch
	roomID := r.rooms[participantID]
	r.mu.Unlock()

	r.setConnected(roomID, participantID, true)
}

// Unregister drops the binding and marks the participant disconnected in
// its room. It returns the room the participant belonged to, if any.
// Calling it for an unknown participant is a no-op.
func (r *Registry) Unregister(participantID string) string {
	r.mu.Lock()
	_, bound := r.channels[participantID]
	delete(r.channels, participantID)
	roomID := r.rooms[participantID]
	r.mu.Unlock()

	if bound {
		r.setConnected(roomID, participantID, false)
	}
	return roomID
}

// Evict drops the binding like Unregister and closes the channel when it
// supports closing, ending the connection from the server side.
func (r *Registry) Evict(participantID string) string {
	r.mu.Lock()
	ch, bound := r.channels[participantID]
	delete(r.channels, participantID)
	roomID := r.rooms[participantID]
	r.mu.Unlock()

	if !bound {
		return roomID
	}
	r.setConnected(roomID, participantID, false)
	if c, ok := ch.(interface{ Close() }); ok {
		c.Close()
	}
	return roomID
}

// Detach is Unregister limited to the binding still being ch, so a stale
// connection closing late cannot detach its replacement.
func (r *Registry) Detach(participantID string, ch Channel) (string, bool) {
	r.mu.Lock()
	current, bound := r.channels[participantID]
	if !bound || current != ch {
		r.mu.Unlock()
		return "", false
	}
	delete(r.channels, participantID)
	roomID := r.rooms[participantID]
	r.mu.Unlock()

	r.setConnected(roomID, participantID, false)
	return roomID, true
}

// Reachable reports whether participantID has a live channel.
func (r *Registry) Reachable(participantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[participantID]
	return ok
}

// RoomOf returns the room participantID currently belongs to.
func (r *Registry) RoomOf(participantID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.rooms[participantID]
	return roomID, ok
}

// Assign records participantID as a member of roomID, leaving any
// previous room.
func (r *Registry) Assign(participantID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked(participantID)
	r.rooms[participantID] = roomID
	set, ok := r.members[roomID]
	if !ok {
		set = make(map[string]struct{})
		r.members[roomID] = set
	}
	set[participantID] = struct{}{}
}

// Release removes participantID from its room's membership.
func (r *Registry) Release(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked(participantID)
}

// ReleaseRoom forgets every member of roomID.
func (r *Registry) ReleaseRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for participantID := range r.members[roomID] {
		if r.rooms[participantID] == roomID {
			delete(r.rooms, participantID)
		}
	}
	delete(r.members, roomID)
}

func (r *Registry) releaseLocked(participantID string) {
	prev, ok := r.rooms[participantID]
	if !ok {
		return
	}
	delete(r.rooms, participantID)
	if set, ok := r.members[prev]; ok {
		delete(set, participantID)
		if len(set) == 0 {
			delete(r.members, prev)
		}
	}
}

// Unicast delivers event to one participant if reachable.
func (r *Registry) Unicast(participantID string, event domain.Event) {
	r.mu.RLock()
	ch, ok := r.channels[participantID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if err := ch.Send(event); err != nil {
		log.Printf("unicast %s to %s dropped: %v", event.EventType(), participantID, err)
	}
}

// Broadcast delivers event to every reachable member of roomID except
// the excluded participants.
func (r *Registry) Broadcast(roomID string, event domain.Event, exclude ...string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for participantID := range r.members[roomID] {
		if contains(exclude, participantID) {
			continue
		}
		ch, ok := r.channels[participantID]
		if !ok {
			continue
		}
		if err := ch.Send(event); err != nil {
			log.Printf("broadcast %s to %s dropped: %v", event.EventType(), participantID, err)
		}
	}
}

func (r *Registry) setConnected(roomID, participantID string, connected bool) {
	if roomID == "" || r.sessions == nil {
		return
	}
	session, ok := r.sessions.Get(roomID)
	if !ok {
		return
	}
	session.setConnected(participantID, connected)
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
