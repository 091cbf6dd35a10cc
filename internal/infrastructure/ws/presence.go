package ws

// Member is one live connection inside a room.
type Member struct {
	PeerID        string
	Username      string
	ScreenSharing bool
}

type roomState struct {
	// Insertion-ordered live roster.
	members []*Member
	// Every username that ever joined, kept after they leave. Consumed
	// by archival when the room empties.
	participants map[string]struct{}
	order        []string
}

// Presence tracks per-room rosters and the cumulative participant set.
// It is not safe for concurrent use; all mutation happens on the core
// event loop.
type Presence struct {
	rooms map[string]*roomState
}

func NewPresence() *Presence {
	return &Presence{rooms: make(map[string]*roomState)}
}

// Join adds the member to the room's roster and records the username in
// the cumulative participant set. It is idempotent per connection: a
// repeat join for a peer already on the roster refreshes its username
// instead of adding a second entry. It returns the roster as it was
// before this member joined, the joiner itself excluded.
func (p *Presence) Join(roomID, peerID, username string) []Member {
	rs, ok := p.rooms[roomID]
	if !ok {
		rs = &roomState{participants: make(map[string]struct{})}
		p.rooms[roomID] = rs
	}

	var prior []Member
	var existing *Member
	for _, m := range rs.members {
		if m.PeerID == peerID {
			existing = m
			continue
		}
		prior = append(prior, *m)
	}

	if existing != nil {
		existing.Username = username
	} else {
		rs.members = append(rs.members, &Member{PeerID: peerID, Username: username})
	}
	if _, seen := rs.participants[username]; !seen {
		rs.participants[username] = struct{}{}
		rs.order = append(rs.order, username)
	}

	return prior
}

// Leave removes the connection from the roster. It is idempotent: a
// second call for the same peer is a no-op. The empty result is true
// only on the call that removed the last member, so the empty-room
// transition observes exactly once.
func (p *Presence) Leave(roomID, peerID string) (removed, empty bool) {
	rs, ok := p.rooms[roomID]
	if !ok {
		return false, false
	}

	for i, m := range rs.members {
		if m.PeerID == peerID {
			rs.members = append(rs.members[:i], rs.members[i+1:]...)
			removed = true
			break
		}
	}

	if removed && len(rs.members) == 0 {
		return true, true
	}
	return removed, false
}

// Roster returns the current live members in join order.
func (p *Presence) Roster(roomID string) []Member {
	rs, ok := p.rooms[roomID]
	if !ok {
		return nil
	}
	return snapshot(rs.members)
}

// MemberCount reports the live roster size.
func (p *Presence) MemberCount(roomID string) int {
	rs, ok := p.rooms[roomID]
	if !ok {
		return 0
	}
	return len(rs.members)
}

// RoomCount reports how many rooms currently have state.
func (p *Presence) RoomCount() int {
	return len(p.rooms)
}

// ConsumeParticipants returns the cumulative username set in first-join
// order and drops the room's state. Called once when the room empties.
func (p *Presence) ConsumeParticipants(roomID string) []string {
	rs, ok := p.rooms[roomID]
	if !ok {
		return nil
	}
	delete(p.rooms, roomID)

	participants := make([]string, len(rs.order))
	copy(participants, rs.order)
	return participants
}

// SetScreenSharing flags the member's live screen-share state.
func (p *Presence) SetScreenSharing(roomID, peerID string, sharing bool) {
	rs, ok := p.rooms[roomID]
	if !ok {
		return
	}
	for _, m := range rs.members {
		if m.PeerID == peerID {
			m.ScreenSharing = sharing
			return
		}
	}
}

// ScreenSharers returns the members currently sharing their screen.
func (p *Presence) ScreenSharers(roomID string) []Member {
	rs, ok := p.rooms[roomID]
	if !ok {
		return nil
	}

	var sharers []Member
	for _, m := range rs.members {
		if m.ScreenSharing {
			sharers = append(sharers, *m)
		}
	}
	return sharers
}

func snapshot(members []*Member) []Member {
	out := make([]Member, len(members))
	for i, m := range members {
		out[i] = *m
	}
	return out
}
