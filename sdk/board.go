// Package sdk holds client-side building blocks for programs that speak
// the realtime protocol. The server never runs this code.
package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownObject = errors.New("unknown board object")

// Emitter is the forward path to the server. Undo and redo reuse it:
// an undone add goes out as a plain remove, so the server and the other
// clients never need to know about local history at all. EmitSync
// replaces this client's whole object set in one event and backs the
// bulk operations (clear, multi-object restore).
type Emitter interface {
	EmitAdd(object json.RawMessage)
	EmitUpdate(object json.RawMessage)
	EmitRemove(objectID string)
	EmitSync(objects []json.RawMessage)
}

type changeKind int

const (
	changeAdd changeKind = iota
	changeUpdate
	changeRemove
	changeClear
)

// change is one local edit with enough captured state to run it in
// either direction. prior is only set for updates, objects only for
// clears.
type change struct {
	kind     changeKind
	objectID string
	object   json.RawMessage
	prior    json.RawMessage
	objects  []json.RawMessage
}

// Board is the client-local canvas state: every object currently
// visible, its owner, plus the undo and redo stacks for this client's
// own edits. History is strictly local; remote events never enter the
// stacks.
type Board struct {
	emitter Emitter
	// self is this client's identity; objects it draws are attributed
	// to it, and bulk operations act on its objects only.
	self string

	objects map[string]json.RawMessage
	owners  map[string]string
	order   []string

	undoStack []change
	redoStack []change

	// Guards against Local* calls re-entering from application
	// callbacks while an undo or redo is being applied; those must not
	// clear the redo stack or double-record history.
	inUndoRedo bool
}

func NewBoard(emitter Emitter, self string) *Board {
	return &Board{
		emitter: emitter,
		self:    self,
		objects: make(map[string]json.RawMessage),
		owners:  make(map[string]string),
	}
}

// objectIdentity is the only structured part of an object payload:
// the client-generated id plus, when the drawing client embedded it,
// the owner identity.
type objectIdentity struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
}

func identify(object json.RawMessage) (objectIdentity, error) {
	var ident objectIdentity
	if err := json.Unmarshal(object, &ident); err != nil {
		return ident, err
	}
	if ident.ID == "" {
		return ident, fmt.Errorf("board object has no id")
	}
	return ident, nil
}

// LocalAdd records and emits a new object drawn by this client.
func (b *Board) LocalAdd(object json.RawMessage) error {
	ident, err := identify(object)
	if err != nil {
		return err
	}

	b.put(ident.ID, b.self, object)
	b.record(change{kind: changeAdd, objectID: ident.ID, object: object})
	b.emitter.EmitAdd(object)
	return nil
}

// LocalUpdate records and emits a mutation of an existing object. The
// object's prior state is captured so the update can be undone.
func (b *Board) LocalUpdate(object json.RawMessage) error {
	ident, err := identify(object)
	if err != nil {
		return err
	}

	prior, ok := b.objects[ident.ID]
	if !ok {
		return ErrUnknownObject
	}

	b.objects[ident.ID] = object
	b.record(change{kind: changeUpdate, objectID: ident.ID, object: object, prior: prior})
	b.emitter.EmitUpdate(object)
	return nil
}

// LocalRemove records and emits a deletion. The removed state is
// captured so an undo can re-add it.
func (b *Board) LocalRemove(id string) error {
	prior, ok := b.objects[id]
	if !ok {
		return ErrUnknownObject
	}

	b.delete(id)
	b.record(change{kind: changeRemove, objectID: id, object: prior})
	b.emitter.EmitRemove(id)
	return nil
}

// LocalClear removes every object this client owns and announces the
// now-empty set in a single sync instead of one remove per object.
// Other owners' objects are untouched. The cleared set is captured so
// an undo can restore it wholesale.
func (b *Board) LocalClear() {
	mine := b.ownObjects()
	if len(mine) == 0 {
		return
	}

	for _, object := range mine {
		ident, err := identify(object)
		if err != nil {
			continue
		}
		b.delete(ident.ID)
	}

	b.record(change{kind: changeClear, objects: mine})
	b.emitter.EmitSync([]json.RawMessage{})
}

// Undo reverses this client's most recent edit and emits the inverse as
// an ordinary forward operation; a multi-object restore goes out as one
// sync. Returns false when there is nothing to undo.
func (b *Board) Undo() bool {
	if len(b.undoStack) == 0 {
		return false
	}

	last := b.undoStack[len(b.undoStack)-1]
	b.undoStack = b.undoStack[:len(b.undoStack)-1]
	b.redoStack = append(b.redoStack, last)

	b.inUndoRedo = true
	defer func() { b.inUndoRedo = false }()

	switch last.kind {
	case changeAdd:
		b.delete(last.objectID)
		b.emitter.EmitRemove(last.objectID)
	case changeRemove:
		b.put(last.objectID, b.self, last.object)
		b.emitter.EmitAdd(last.object)
	case changeUpdate:
		b.objects[last.objectID] = last.prior
		b.emitter.EmitUpdate(last.prior)
	case changeClear:
		b.restoreOwn(last.objects)
	}
	return true
}

// Redo re-applies the most recently undone edit. Returns false when the
// redo stack is empty.
func (b *Board) Redo() bool {
	if len(b.redoStack) == 0 {
		return false
	}

	next := b.redoStack[len(b.redoStack)-1]
	b.redoStack = b.redoStack[:len(b.redoStack)-1]
	b.undoStack = append(b.undoStack, next)

	b.inUndoRedo = true
	defer func() { b.inUndoRedo = false }()

	switch next.kind {
	case changeAdd:
		b.put(next.objectID, b.self, next.object)
		b.emitter.EmitAdd(next.object)
	case changeRemove:
		b.delete(next.objectID)
		b.emitter.EmitRemove(next.objectID)
	case changeUpdate:
		b.objects[next.objectID] = next.object
		b.emitter.EmitUpdate(next.object)
	case changeClear:
		for _, object := range next.objects {
			if ident, err := identify(object); err == nil {
				b.delete(ident.ID)
			}
		}
		b.emitter.EmitSync([]json.RawMessage{})
	}
	return true
}

// restoreOwn re-adds a captured set of this client's objects and
// announces the full set in one sync.
func (b *Board) restoreOwn(objects []json.RawMessage) {
	for _, object := range objects {
		ident, err := identify(object)
		if err != nil {
			continue
		}
		b.put(ident.ID, b.self, object)
	}
	b.emitter.EmitSync(b.ownObjects())
}

func (b *Board) record(c change) {
	if b.inUndoRedo {
		return
	}
	b.undoStack = append(b.undoStack, c)
	// A genuinely new edit forks history; the redo chain no longer
	// applies.
	b.redoStack = nil
}

// ApplyInit replaces the canvas with the server's join snapshot.
// Ownership is rebuilt from the identities embedded in the payloads.
// History is cleared: it described objects that may no longer exist.
func (b *Board) ApplyInit(objects []json.RawMessage) error {
	b.objects = make(map[string]json.RawMessage)
	b.owners = make(map[string]string)
	b.order = nil
	b.undoStack = nil
	b.redoStack = nil

	for _, object := range objects {
		ident, err := identify(object)
		if err != nil {
			return err
		}
		b.put(ident.ID, ident.UserID, object)
	}
	return nil
}

// ApplyRemoteAdd merges another client's new object. Remote changes are
// not undoable here.
func (b *Board) ApplyRemoteAdd(object json.RawMessage) error {
	ident, err := identify(object)
	if err != nil {
		return err
	}
	b.put(ident.ID, ident.UserID, object)
	return nil
}

func (b *Board) ApplyRemoteUpdate(object json.RawMessage) error {
	ident, err := identify(object)
	if err != nil {
		return err
	}
	if _, ok := b.objects[ident.ID]; !ok {
		// An update may race ahead of the add it depends on; treat it
		// as the object's first appearance.
		b.put(ident.ID, ident.UserID, object)
		return nil
	}
	b.objects[ident.ID] = object
	if ident.UserID != "" {
		b.owners[ident.ID] = ident.UserID
	}
	return nil
}

func (b *Board) ApplyRemoteRemove(id string) {
	b.delete(id)
}

// ApplyRemoteSync is a full replace of one owner's object set: every
// object currently attributed to ownerID is discarded first, then the
// transmitted set is applied. An empty set therefore clears that
// owner's objects. Other owners' objects are untouched.
func (b *Board) ApplyRemoteSync(ownerID string, objects []json.RawMessage) error {
	for _, id := range b.ownedBy(ownerID) {
		b.delete(id)
	}

	for _, object := range objects {
		ident, err := identify(object)
		if err != nil {
			return err
		}
		b.put(ident.ID, ownerID, object)
	}
	return nil
}

// Object returns the current state of one object.
func (b *Board) Object(id string) (json.RawMessage, bool) {
	object, ok := b.objects[id]
	return object, ok
}

// Objects returns the canvas contents in insertion order.
func (b *Board) Objects() []json.RawMessage {
	out := make([]json.RawMessage, 0, len(b.objects))
	for _, id := range b.order {
		if object, ok := b.objects[id]; ok {
			out = append(out, object)
		}
	}
	return out
}

// Owner reports which client the board attributes an object to.
func (b *Board) Owner(id string) (string, bool) {
	owner, ok := b.owners[id]
	return owner, ok
}

// CanUndo reports whether an undo would do anything.
func (b *Board) CanUndo() bool { return len(b.undoStack) > 0 }

// CanRedo reports whether a redo would do anything.
func (b *Board) CanRedo() bool { return len(b.redoStack) > 0 }

// ownObjects returns this client's objects in insertion order.
func (b *Board) ownObjects() []json.RawMessage {
	var out []json.RawMessage
	for _, id := range b.ownedBy(b.self) {
		out = append(out, b.objects[id])
	}
	return out
}

// ownedBy returns the ids attributed to one owner in insertion order.
func (b *Board) ownedBy(ownerID string) []string {
	var ids []string
	for _, id := range b.order {
		if b.owners[id] == ownerID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (b *Board) put(id, owner string, object json.RawMessage) {
	if _, ok := b.objects[id]; !ok {
		b.order = append(b.order, id)
	}
	b.objects[id] = object
	b.owners[id] = owner
}

func (b *Board) delete(id string) {
	if _, ok := b.objects[id]; !ok {
		return
	}
	delete(b.objects, id)
	delete(b.owners, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
