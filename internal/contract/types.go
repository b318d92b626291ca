// Package contract defines the JSON shapes exchanged over the HTTP API and
// printed by the CLI's --json output. Mappers convert from domain types;
// requests convert into service inputs.
package contract

import (
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
)

type SubNode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Tier        string `json:"tier"`
	Description string `json:"description,omitempty"`
}

type Node struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	SubNodes        []SubNode `json:"subNodes"`
	AssignedUserIDs []string  `json:"assignedUserIds"`
	DoneUserIDs     []string  `json:"doneUserIds"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Lock struct {
	ID         string    `json:"id"`
	NodeID     string    `json:"nodeId"`
	SubNodeID  string    `json:"subNodeId"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

type AuditEntry struct {
	ID           string     `json:"id"`
	Seq          int64      `json:"seq"`
	Kind         string     `json:"kind"`
	NodeID       string     `json:"nodeId"`
	NodeName     string     `json:"nodeName"`
	SubNodeID    string     `json:"subNodeId,omitempty"`
	SubNodeName  string     `json:"subNodeName"`
	ActorID      string     `json:"actorId"`
	ActorName    string     `json:"actorName"`
	CreatedAt    time.Time  `json:"createdAt"`
	SupersededAt *time.Time `json:"supersededAt,omitempty"`
}

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// Snapshot is the payload of every event-feed message: the caller's full
// visible state.
type Snapshot struct {
	Nodes []Node       `json:"nodes"`
	Locks []Lock       `json:"locks"`
	Audit []AuditEntry `json:"audit"`
}

type Release struct {
	Lock  Lock       `json:"lock"`
	Entry AuditEntry `json:"entry"`
}

// ReleaseResponse is returned by abort and finalize. Released is false
// when the call was a no-op.
type ReleaseResponse struct {
	Released bool     `json:"released"`
	Release  *Release `json:"release,omitempty"`
}

type DoneResponse struct {
	NodeID    string   `json:"nodeId"`
	Done      bool     `json:"done"`
	Finalized *Release `json:"finalized,omitempty"`
}

type ResetResponse struct {
	NodeID        string     `json:"nodeId"`
	LocksReleased int64      `json:"locksReleased"`
	DoneCleared   int64      `json:"doneCleared"`
	AuditRetired  int64      `json:"auditRetired"`
	Entry         AuditEntry `json:"entry"`
}

type SyncerCount struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Syncs    int    `json:"syncs"`
}

type NodeLockCount struct {
	NodeID   string `json:"nodeId"`
	NodeName string `json:"nodeName"`
	Locks    int    `json:"locks"`
}

type Analysis struct {
	SyncsToday     int             `json:"syncsToday"`
	ActiveUsers    int             `json:"activeUsers"`
	LockedSubNodes int             `json:"lockedSubNodes"`
	Risk           string          `json:"risk"`
	Heatmap        [24]int         `json:"heatmap"`
	TopSyncers     []SyncerCount   `json:"topSyncers"`
	NodeLockCount  []NodeLockCount `json:"nodeLockCount"`
}

type MatrixRow struct {
	UserID   string   `json:"userId"`
	UserName string   `json:"userName"`
	Done     bool     `json:"done"`
	Cells    []string `json:"cells"`
}

type Matrix struct {
	NodeID   string      `json:"nodeId"`
	NodeName string      `json:"nodeName"`
	SubNodes []SubNode   `json:"subNodes"`
	Rows     []MatrixRow `json:"rows"`
	AllDone  bool        `json:"allDone"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
	Holder string `json:"holder,omitempty"`
}

// ErrorFrom maps err to a response body. Errors that are not domain
// failures are reported as INTERNAL without detail.
func ErrorFrom(err error) ErrorResponse {
	if f, ok := domain.AsFailure(err); ok {
		return ErrorResponse{Code: string(f.Code), Detail: f.Detail, Holder: f.Holder}
	}
	return ErrorResponse{Code: CodeInternal}
}

// CodeInternal is reported for infrastructure errors.
const CodeInternal = "INTERNAL"
