package domain

// Analysis summarises coordination activity over the caller's visible data.
type Analysis struct {
	SyncsToday     int
	ActiveUsers    int
	LockedSubNodes int
	Risk           RiskLevel
	// Heatmap counts audit entries per local hour of day.
	Heatmap       [24]int
	TopSyncers    []SyncerCount
	NodeLockCount []NodeLockCount
}

type SyncerCount struct {
	UserID   string
	UserName string
	Syncs    int
}

type NodeLockCount struct {
	NodeID   string
	NodeName string
	Locks    int
}

// ReleaseMatrix shows each member's commit progress across a node's
// sub-nodes.
type ReleaseMatrix struct {
	NodeID   string
	NodeName string
	SubNodes []SubNode
	Rows     []MatrixRow
	AllDone  bool
}

type MatrixRow struct {
	UserID   string
	UserName string
	Done     bool
	// Cells is parallel to ReleaseMatrix.SubNodes.
	Cells []CommitStatus
}
