// Package event carries change notifications from the coordination
// services to observers.
package event

import (
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
)

// Event is the interface that all events implement.
type Event interface {
	// EventType returns "category.action", e.g. "lock.changed".
	EventType() string
	Timestamp() time.Time
}

const (
	TypeNodeChanged   = "node.changed"
	TypeLockChanged   = "lock.changed"
	TypeAuditAppended = "audit.appended"
	TypeNodeReset     = "node.reset"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{eventType: eventType, timestamp: time.Now()}
}

// NodeAction says what happened to a node.
type NodeAction string

const (
	NodeCreated NodeAction = "created"
	NodeUpdated NodeAction = "updated"
	NodeDeleted NodeAction = "deleted"
	NodeDone    NodeAction = "done_toggled"
)

// NodeChangedEvent is emitted when the node catalog or a done-set changes.
type NodeChangedEvent struct {
	baseEvent
	NodeID string
	Action NodeAction
}

func NewNodeChangedEvent(nodeID string, action NodeAction) NodeChangedEvent {
	return NodeChangedEvent{baseEvent: newBaseEvent(TypeNodeChanged), NodeID: nodeID, Action: action}
}

// LockChangedEvent is emitted when a lock is acquired or released. Kind is
// the audit kind recorded for the change.
type LockChangedEvent struct {
	baseEvent
	NodeID    string
	SubNodeID string
	UserID    string
	Kind      domain.AuditKind
}

func NewLockChangedEvent(l *domain.Lock, kind domain.AuditKind) LockChangedEvent {
	return LockChangedEvent{
		baseEvent: newBaseEvent(TypeLockChanged),
		NodeID:    l.NodeID,
		SubNodeID: l.SubNodeID,
		UserID:    l.UserID,
		Kind:      kind,
	}
}

// AuditAppendedEvent is emitted for every committed audit entry.
type AuditAppendedEvent struct {
	baseEvent
	Entry domain.AuditEntry
}

func NewAuditAppendedEvent(e *domain.AuditEntry) AuditAppendedEvent {
	return AuditAppendedEvent{baseEvent: newBaseEvent(TypeAuditAppended), Entry: *e}
}

// NodeResetEvent is emitted after a reset wipes a node's coordination state.
type NodeResetEvent struct {
	baseEvent
	NodeID        string
	ActorID       string
	LocksReleased int64
	DoneCleared   int64
	AuditRetired  int64
}

func NewNodeResetEvent(nodeID, actorID string, locks, done, audit int64) NodeResetEvent {
	return NodeResetEvent{
		baseEvent:     newBaseEvent(TypeNodeReset),
		NodeID:        nodeID,
		ActorID:       actorID,
		LocksReleased: locks,
		DoneCleared:   done,
		AuditRetired:  audit,
	}
}
