package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/confabhq/confab/internal/domain"
	"github.com/confabhq/confab/internal/infrastructure/events"
	"github.com/confabhq/confab/internal/infrastructure/metrics"
)

// In-memory fakes

type fakeRoomRepo struct {
	rooms map[string]*domain.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[string]*domain.Room)}
}

func (r *fakeRoomRepo) Create(_ context.Context, room *domain.Room) error {
	if _, ok := r.rooms[room.RoomID]; ok {
		return domain.ErrRoomAlreadyExists
	}
	r.rooms[room.RoomID] = room
	return nil
}

func (r *fakeRoomRepo) GetByRoomID(_ context.Context, roomID string) (*domain.Room, error) {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (r *fakeRoomRepo) Delete(_ context.Context, roomID string) error {
	delete(r.rooms, roomID)
	return nil
}

type fakeMessageRepo struct {
	messages  []domain.ChatMessage
	insertErr error
}

func (r *fakeMessageRepo) Insert(_ context.Context, msg *domain.ChatMessage) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) GetByRoomID(_ context.Context, roomID string) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	for _, m := range r.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) DeleteByRoomID(_ context.Context, roomID string) error {
	var kept []domain.ChatMessage
	for _, m := range r.messages {
		if m.RoomID != roomID {
			kept = append(kept, m)
		}
	}
	r.messages = kept
	return nil
}

type fakeWhiteboardRepo struct {
	objects []domain.BoardObject
}

func (r *fakeWhiteboardRepo) Insert(_ context.Context, obj *domain.BoardObject) error {
	r.objects = append(r.objects, *obj)
	return nil
}

func (r *fakeWhiteboardRepo) UpdateOwned(_ context.Context, roomID, objectID, ownerID string, shape json.RawMessage) (bool, error) {
	for i, obj := range r.objects {
		if obj.RoomID == roomID && obj.ObjectID == objectID && obj.OwnerID == ownerID {
			r.objects[i].Shape = shape
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeWhiteboardRepo) RemoveOwned(_ context.Context, roomID, objectID, ownerID string) (bool, error) {
	for i, obj := range r.objects {
		if obj.RoomID == roomID && obj.ObjectID == objectID && obj.OwnerID == ownerID {
			r.objects = append(r.objects[:i], r.objects[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeWhiteboardRepo) ReplaceOwned(_ context.Context, roomID, ownerID string, shapes []json.RawMessage) error {
	var kept []domain.BoardObject
	for _, obj := range r.objects {
		if !(obj.RoomID == roomID && obj.OwnerID == ownerID) {
			kept = append(kept, obj)
		}
	}
	r.objects = kept
	for _, shape := range shapes {
		obj, err := domain.NewBoardObject(roomID, ownerID, shape)
		if err != nil {
			return err
		}
		r.objects = append(r.objects, *obj)
	}
	return nil
}

func (r *fakeWhiteboardRepo) GetByRoomID(_ context.Context, roomID string) ([]domain.BoardObject, error) {
	var out []domain.BoardObject
	for _, obj := range r.objects {
		if obj.RoomID == roomID {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (r *fakeWhiteboardRepo) DeleteByRoomID(_ context.Context, roomID string) error {
	var kept []domain.BoardObject
	for _, obj := range r.objects {
		if obj.RoomID != roomID {
			kept = append(kept, obj)
		}
	}
	r.objects = kept
	return nil
}

type fakeArchiver struct {
	calls        []string
	participants [][]string
	err          error
}

func (a *fakeArchiver) Archive(_ context.Context, roomID string, participants []string) error {
	if a.err != nil {
		return a.err
	}
	a.calls = append(a.calls, roomID)
	a.participants = append(a.participants, participants)
	return nil
}

type coreFixture struct {
	core       *Core
	rooms      *fakeRoomRepo
	messages   *fakeMessageRepo
	whiteboard *fakeWhiteboardRepo
	archiver   *fakeArchiver
}

func newCoreFixture(t *testing.T) *coreFixture {
	t.Helper()

	f := &coreFixture{
		rooms:      newFakeRoomRepo(),
		messages:   &fakeMessageRepo{},
		whiteboard: &fakeWhiteboardRepo{},
		archiver:   &fakeArchiver{},
	}
	f.core = NewCore(
		f.rooms,
		f.messages,
		f.whiteboard,
		f.archiver,
		events.NopPublisher{},
		metrics.New(),
		zap.NewNop().Sugar(),
	)
	return f
}

func (f *coreFixture) newRoom(t *testing.T, roomID string) {
	t.Helper()
	room, err := domain.NewRoom(roomID, "", "creator-1")
	require.NoError(t, err)
	require.NoError(t, f.rooms.Create(context.Background(), room))
}

func (f *coreFixture) connect(id, userID, username string) *Client {
	cl := &Client{
		Send:     make(chan *Envelope, 64),
		ID:       id,
		UserID:   userID,
		Username: username,
	}
	f.core.handleRegister(cl)
	return cl
}

func (f *coreFixture) join(t *testing.T, cl *Client, roomID string) {
	t.Helper()
	f.dispatch(t, cl, Join, JoinRequest{RoomID: roomID, Username: cl.Username})
}

func (f *coreFixture) dispatch(t *testing.T, cl *Client, eventType string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	f.core.dispatch(context.Background(), cl, Frame{Type: eventType, Data: data})
}

// drain empties the client's send buffer and returns the queued envelopes.
func drain(cl *Client) []*Envelope {
	var out []*Envelope
	for {
		select {
		case env := <-cl.Send:
			out = append(out, env)
		default:
			return out
		}
	}
}

func typesOf(envelopes []*Envelope) []string {
	out := make([]string, len(envelopes))
	for i, env := range envelopes {
		out[i] = env.Type
	}
	return out
}

func findEnvelope(envelopes []*Envelope, eventType string) *Envelope {
	for _, env := range envelopes {
		if env.Type == eventType {
			return env
		}
	}
	return nil
}

func countType(envelopes []*Envelope, eventType string) int {
	n := 0
	for _, env := range envelopes {
		if env.Type == eventType {
			n++
		}
	}
	return n
}

// Tests

func TestRegisterSendsWelcomeWithConnectionID(t *testing.T) {
	f := newCoreFixture(t)
	cl := f.connect("conn-a", "user-a", "alice")

	envelopes := drain(cl)
	require.Len(t, envelopes, 1)
	assert.Equal(t, Welcome, envelopes[0].Type)
	assert.Equal(t, WelcomePayload{ConnectionID: "conn-a"}, envelopes[0].Data)
}

func TestCreateRoomAckAndDuplicateNack(t *testing.T) {
	f := newCoreFixture(t)
	cl := f.connect("conn-a", "user-a", "alice")
	drain(cl)

	f.dispatch(t, cl, CreateRoom, CreateRoomRequest{RoomID: "standup1"})

	envelopes := drain(cl)
	require.Len(t, envelopes, 1)
	assert.Equal(t, AckPayload{Success: true}, envelopes[0].Data)

	other := f.connect("conn-b", "user-b", "bob")
	drain(other)
	f.dispatch(t, other, CreateRoom, CreateRoomRequest{RoomID: "standup1"})

	envelopes = drain(other)
	require.Len(t, envelopes, 1)
	ack, ok := envelopes[0].Data.(AckPayload)
	require.True(t, ok)
	assert.False(t, ack.Success)
	assert.Equal(t, "room already exists", ack.Message)
}

func TestCreateRoomRejectsInvalidID(t *testing.T) {
	f := newCoreFixture(t)
	cl := f.connect("conn-a", "user-a", "alice")
	drain(cl)

	f.dispatch(t, cl, CreateRoom, CreateRoomRequest{RoomID: "no spaces!"})

	envelopes := drain(cl)
	require.Len(t, envelopes, 1)
	ack, ok := envelopes[0].Data.(AckPayload)
	require.True(t, ok)
	assert.False(t, ack.Success)
}

func TestVerifyPassword(t *testing.T) {
	f := newCoreFixture(t)
	room, err := domain.NewRoom("secure1", "hunter22", "creator-1")
	require.NoError(t, err)
	require.NoError(t, f.rooms.Create(context.Background(), room))

	cl := f.connect("conn-a", "user-a", "alice")
	drain(cl)

	f.dispatch(t, cl, VerifyPassword, VerifyPasswordRequest{RoomID: "secure1", Password: "wrongpass"})
	envelopes := drain(cl)
	require.Len(t, envelopes, 1)
	assert.Equal(t, AckPayload{Success: false, Message: "invalid password"}, envelopes[0].Data)

	f.dispatch(t, cl, VerifyPassword, VerifyPasswordRequest{RoomID: "secure1", Password: "hunter22"})
	envelopes = drain(cl)
	require.Len(t, envelopes, 1)
	assert.Equal(t, AckPayload{Success: true}, envelopes[0].Data)
}

func TestJoinIntroductions(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	f.join(t, alice, "standup1")
	drain(alice)

	bob := f.connect("conn-b", "user-b", "bob")
	drain(bob)
	f.join(t, bob, "standup1")

	bobEnvelopes := drain(bob)

	existing := findEnvelope(bobEnvelopes, ExistingUsers)
	require.NotNil(t, existing)
	members, ok := existing.Data.([]MemberPayload)
	require.True(t, ok)
	require.Len(t, members, 1)
	assert.Equal(t, "conn-a", members[0].PeerID)

	// The joiner must not be told to introduce itself.
	assert.Zero(t, countType(bobEnvelopes, NewPeer))
	assert.Equal(t, 1, countType(bobEnvelopes, MembersUpdated))
	assert.Equal(t, 1, countType(bobEnvelopes, WhiteboardInit))
	assert.Equal(t, 1, countType(bobEnvelopes, ScreenShareStatus))

	aliceEnvelopes := drain(alice)
	require.Equal(t, 1, countType(aliceEnvelopes, NewPeer))
	newPeer := findEnvelope(aliceEnvelopes, NewPeer)
	assert.Equal(t, MemberPayload{PeerID: "conn-b", Username: "bob"}, newPeer.Data)
}

func TestRepeatJoinSameRoomIsInert(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	f.join(t, alice, "standup1")
	drain(alice)

	// A second join for the room the client is already in changes
	// nothing: no duplicate roster entry, no replayed snapshot.
	f.join(t, alice, "standup1")
	assert.Empty(t, drain(alice))

	roster := f.core.presence.Roster("standup1")
	require.Len(t, roster, 1)
	assert.Equal(t, "conn-a", roster[0].PeerID)

	// Disconnecting still empties the room and archives it.
	f.core.handleDisconnect(context.Background(), alice)
	assert.Equal(t, []string{"standup1"}, f.archiver.calls)
	require.Len(t, f.archiver.participants, 1)
	assert.Equal(t, []string{"alice"}, f.archiver.participants[0])
}

func TestJoinUnknownRoomReportsError(t *testing.T) {
	f := newCoreFixture(t)
	cl := f.connect("conn-a", "user-a", "alice")
	drain(cl)

	f.join(t, cl, "notaroom")

	envelopes := drain(cl)
	require.Len(t, envelopes, 1)
	assert.Equal(t, ErrorEvent, envelopes[0].Type)
	assert.Empty(t, cl.RoomID)
}

func TestChatPersistsThenBroadcastsToEveryone(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")
	drain(alice)
	drain(bob)

	f.dispatch(t, alice, ChatMessage, ChatRequest{Room: "standup1", Message: "hello"})

	require.Len(t, f.messages.messages, 1)
	assert.Equal(t, "hello", f.messages.messages[0].Body)
	assert.Equal(t, "user-a", f.messages.messages[0].SenderID)

	for _, cl := range []*Client{alice, bob} {
		envelopes := drain(cl)
		require.Len(t, envelopes, 1, "client %s", cl.ID)
		payload, ok := envelopes[0].Data.(ChatPayload)
		require.True(t, ok)
		assert.Equal(t, "alice", payload.Sender)
		assert.Equal(t, "hello", payload.Message)
		assert.NotZero(t, payload.Time)
	}
}

func TestChatPersistFailureStillDelivers(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")
	f.messages.insertErr = errors.New("mongo down")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")
	drain(alice)
	drain(bob)

	f.dispatch(t, alice, ChatMessage, ChatRequest{Room: "standup1", Message: "hello"})

	aliceEnvelopes := drain(alice)
	assert.Equal(t, 1, countType(aliceEnvelopes, ErrorEvent))
	assert.Equal(t, 1, countType(aliceEnvelopes, ChatMessage))

	bobEnvelopes := drain(bob)
	assert.Equal(t, 1, countType(bobEnvelopes, ChatMessage))
	assert.Zero(t, countType(bobEnvelopes, ErrorEvent))
}

func TestChatHistoryReplayOnJoin(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	f.join(t, alice, "standup1")
	drain(alice)
	f.dispatch(t, alice, ChatMessage, ChatRequest{Room: "standup1", Message: "first"})
	f.dispatch(t, alice, ChatMessage, ChatRequest{Room: "standup1", Message: "second"})
	drain(alice)

	bob := f.connect("conn-b", "user-b", "bob")
	drain(bob)
	f.join(t, bob, "standup1")

	bobEnvelopes := drain(bob)
	require.Equal(t, 2, countType(bobEnvelopes, ChatMessage))

	var replayed []string
	for _, env := range bobEnvelopes {
		if env.Type == ChatMessage {
			replayed = append(replayed, env.Data.(ChatPayload).Message)
		}
	}
	assert.Equal(t, []string{"first", "second"}, replayed)
}

func TestSignalForwardedWithServerStampedSender(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")
	drain(alice)
	drain(bob)

	offer := json.RawMessage(`{"sdp":"offer"}`)
	f.dispatch(t, alice, Signal, SignalRequest{To: "conn-b", From: "spoofed", Signal: offer})

	bobEnvelopes := drain(bob)
	require.Len(t, bobEnvelopes, 1)
	payload, ok := bobEnvelopes[0].Data.(SignalPayload)
	require.True(t, ok)
	assert.Equal(t, "conn-a", payload.From)
	assert.JSONEq(t, `{"sdp":"offer"}`, string(payload.Signal))

	// Nothing comes back to the sender.
	assert.Empty(t, drain(alice))
}

func TestSignalOrderPreservedPerPair(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")
	drain(alice)
	drain(bob)

	for i := 0; i < 5; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i))
		f.dispatch(t, alice, Signal, SignalRequest{To: "conn-b", Signal: payload})
	}

	bobEnvelopes := drain(bob)
	require.Len(t, bobEnvelopes, 5)
	for i, env := range bobEnvelopes {
		assert.JSONEq(t, fmt.Sprintf(`{"seq":%d}`, i), string(env.Data.(SignalPayload).Signal))
	}
}

func TestWhiteboardAddRelaysToOthersOnly(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")
	drain(alice)
	drain(bob)

	shape := json.RawMessage(`{"id":"obj-1","kind":"rect"}`)
	f.dispatch(t, alice, WhiteboardAdd, BoardObjectRequest{Room: "standup1", Object: shape})

	require.Len(t, f.whiteboard.objects, 1)
	assert.Equal(t, "obj-1", f.whiteboard.objects[0].ObjectID)
	assert.Equal(t, "user-a", f.whiteboard.objects[0].OwnerID)

	assert.Empty(t, drain(alice))
	bobEnvelopes := drain(bob)
	require.Len(t, bobEnvelopes, 1)
	assert.Equal(t, WhiteboardAdd, bobEnvelopes[0].Type)
}

func TestWhiteboardUpdateByNonOwnerIsDropped(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")
	drain(alice)
	drain(bob)

	shape := json.RawMessage(`{"id":"obj-1","kind":"rect"}`)
	f.dispatch(t, alice, WhiteboardAdd, BoardObjectRequest{Room: "standup1", Object: shape})
	drain(bob)

	tampered := json.RawMessage(`{"id":"obj-1","kind":"circle"}`)
	f.dispatch(t, bob, WhiteboardUpdate, BoardObjectRequest{Room: "standup1", Object: tampered})

	// Store unchanged, nothing relayed.
	assert.JSONEq(t, `{"id":"obj-1","kind":"rect"}`, string(f.whiteboard.objects[0].Shape))
	assert.Empty(t, drain(alice))
	assert.Empty(t, drain(bob))

	f.dispatch(t, alice, WhiteboardUpdate, BoardObjectRequest{Room: "standup1", Object: tampered})
	assert.JSONEq(t, `{"id":"obj-1","kind":"circle"}`, string(f.whiteboard.objects[0].Shape))
	require.Len(t, drain(bob), 1)
}

func TestWhiteboardRemoveEnforcesOwnership(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")
	drain(alice)
	drain(bob)

	shape := json.RawMessage(`{"id":"obj-1","kind":"rect"}`)
	f.dispatch(t, alice, WhiteboardAdd, BoardObjectRequest{Room: "standup1", Object: shape})
	drain(bob)

	f.dispatch(t, bob, WhiteboardRemove, BoardRemoveRequest{Room: "standup1", ObjectID: "obj-1"})
	assert.Len(t, f.whiteboard.objects, 1)
	assert.Empty(t, drain(alice))

	f.dispatch(t, alice, WhiteboardRemove, BoardRemoveRequest{Room: "standup1", ObjectID: "obj-1"})
	assert.Empty(t, f.whiteboard.objects)

	bobEnvelopes := drain(bob)
	require.Len(t, bobEnvelopes, 1)
	assert.Equal(t, WhiteboardRemove, bobEnvelopes[0].Type)
	assert.Equal(t, "obj-1", bobEnvelopes[0].Data)
}

func TestWhiteboardSyncReplacesOnlySendersObjects(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")
	drain(alice)
	drain(bob)

	f.dispatch(t, alice, WhiteboardAdd, BoardObjectRequest{Room: "standup1", Object: json.RawMessage(`{"id":"a-1"}`)})
	f.dispatch(t, bob, WhiteboardAdd, BoardObjectRequest{Room: "standup1", Object: json.RawMessage(`{"id":"b-1"}`)})
	drain(alice)
	drain(bob)

	f.dispatch(t, alice, WhiteboardSync, BoardSyncRequest{
		Room:    "standup1",
		Objects: []json.RawMessage{json.RawMessage(`{"id":"a-2"}`)},
	})

	ids := make(map[string]bool)
	for _, obj := range f.whiteboard.objects {
		ids[obj.ObjectID] = true
	}
	assert.Equal(t, map[string]bool{"b-1": true, "a-2": true}, ids)

	bobEnvelopes := drain(bob)
	require.Len(t, bobEnvelopes, 1)
	payload, ok := bobEnvelopes[0].Data.(BoardSyncPayload)
	require.True(t, ok)
	assert.Equal(t, "user-a", payload.UserID)
	require.Len(t, payload.Objects, 1)
}

func TestWhiteboardInitSnapshotOnJoin(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	f.join(t, alice, "standup1")
	drain(alice)
	f.dispatch(t, alice, WhiteboardAdd, BoardObjectRequest{Room: "standup1", Object: json.RawMessage(`{"id":"a-1"}`)})

	bob := f.connect("conn-b", "user-b", "bob")
	drain(bob)
	f.join(t, bob, "standup1")

	initEnv := findEnvelope(drain(bob), WhiteboardInit)
	require.NotNil(t, initEnv)
	objects, ok := initEnv.Data.([]json.RawMessage)
	require.True(t, ok)
	require.Len(t, objects, 1)
	assert.JSONEq(t, `{"id":"a-1"}`, string(objects[0]))
}

func TestLastLeaveTriggersArchivalOnce(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")

	f.dispatch(t, alice, Leave, LeaveRequest{RoomID: "standup1"})
	assert.Empty(t, f.archiver.calls)

	f.core.handleDisconnect(context.Background(), bob)
	assert.Equal(t, []string{"standup1"}, f.archiver.calls)
	require.Len(t, f.archiver.participants, 1)
	assert.Equal(t, []string{"alice", "bob"}, f.archiver.participants[0])

	// A duplicate disconnect for an already removed client is inert.
	f.core.handleDisconnect(context.Background(), bob)
	assert.Equal(t, []string{"standup1"}, f.archiver.calls)
}

func TestLeaveNotifiesRemainingMembers(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")
	drain(alice)
	drain(bob)

	f.dispatch(t, bob, Leave, LeaveRequest{RoomID: "standup1"})

	aliceEnvelopes := drain(alice)
	assert.Equal(t, []string{PeerDisconnect, MembersUpdated}, typesOf(aliceEnvelopes))
	assert.Equal(t, "conn-b", aliceEnvelopes[0].Data)

	roster, ok := aliceEnvelopes[1].Data.([]MemberPayload)
	require.True(t, ok)
	require.Len(t, roster, 1)
	assert.Equal(t, "conn-a", roster[0].PeerID)
}

func TestScreenShareRelayAndSnapshot(t *testing.T) {
	f := newCoreFixture(t)
	f.newRoom(t, "standup1")

	alice := f.connect("conn-a", "user-a", "alice")
	bob := f.connect("conn-b", "user-b", "bob")
	f.join(t, alice, "standup1")
	f.join(t, bob, "standup1")
	drain(alice)
	drain(bob)

	f.core.dispatch(context.Background(), alice, Frame{Type: ScreenShareStarted})

	bobEnvelopes := drain(bob)
	require.Len(t, bobEnvelopes, 1)
	assert.Equal(t, MemberPayload{PeerID: "conn-a", Username: "alice"}, bobEnvelopes[0].Data)

	carol := f.connect("conn-c", "user-c", "carol")
	drain(carol)
	f.join(t, carol, "standup1")

	status := findEnvelope(drain(carol), ScreenShareStatus)
	require.NotNil(t, status)
	sharers, ok := status.Data.([]MemberPayload)
	require.True(t, ok)
	require.Len(t, sharers, 1)
	assert.Equal(t, "conn-a", sharers[0].PeerID)

	f.core.dispatch(context.Background(), alice, Frame{Type: ScreenShareStopped})
	bobEnvelopes = drain(bob)
	require.NotEmpty(t, bobEnvelopes)
	assert.Equal(t, ScreenShareStopped, bobEnvelopes[len(bobEnvelopes)-1].Type)
}

func TestMalformedFrameAnswersWithError(t *testing.T) {
	f := newCoreFixture(t)
	cl := f.connect("conn-a", "user-a", "alice")
	drain(cl)

	f.core.dispatch(context.Background(), cl, Frame{Type: Join, Data: json.RawMessage(`{broken`)})

	envelopes := drain(cl)
	require.Len(t, envelopes, 1)
	assert.Equal(t, ErrorEvent, envelopes[0].Type)
}

func TestUnknownEventTypeAnswersWithError(t *testing.T) {
	f := newCoreFixture(t)
	cl := f.connect("conn-a", "user-a", "alice")
	drain(cl)

	f.core.dispatch(context.Background(), cl, Frame{Type: "nonsense"})

	envelopes := drain(cl)
	require.Len(t, envelopes, 1)
	assert.Equal(t, ErrorEvent, envelopes[0].Type)
}
