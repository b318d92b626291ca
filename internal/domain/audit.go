package domain

import (
	"strings"
	"time"
)

// GlobalResetSubNode is the sub-node name recorded on RESET entries.
const GlobalResetSubNode = "GLOBAL_RESET"

// System identity used for entries written by the lease sweeper.
const (
	SystemActorID   = "system"
	SystemActorName = "SYSTEM"
)

// AuditEntry records one coordination event. Node, sub-node and actor are
// referenced by id; the name fields are snapshots taken when the entry was
// written so history stays readable after renames.
type AuditEntry struct {
	ID           string
	Seq          int64
	Kind         AuditKind
	NodeID       string
	NodeName     string
	SubNodeID    string
	SubNodeName  string
	ActorID      string
	ActorName    string
	CreatedAt    time.Time
	SupersededAt *time.Time
}

// Validate checks well-formedness only. It never consults other state.
func (e *AuditEntry) Validate() error {
	if !ValidAuditKinds[e.Kind] {
		return Fail(CodeInvalidInput, "invalid audit kind %q", e.Kind)
	}
	if strings.TrimSpace(e.NodeID) == "" || strings.TrimSpace(e.NodeName) == "" {
		return Fail(CodeInvalidInput, "audit entry requires a node")
	}
	if strings.TrimSpace(e.ActorID) == "" || strings.TrimSpace(e.ActorName) == "" {
		return Fail(CodeInvalidInput, "audit entry requires an actor")
	}
	if strings.TrimSpace(e.SubNodeName) == "" {
		return Fail(CodeInvalidInput, "audit entry requires a sub-node name")
	}
	return nil
}

// IsSuperseded reports whether a reset in archive mode has retired the entry.
func (e *AuditEntry) IsSuperseded() bool {
	return e.SupersededAt != nil
}
