package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleRoot          Role = "root"
	RoleAdmin         Role = "admin"
	RoleProjectLeader Role = "project_leader"
	RoleTeamLead      Role = "team_lead"
	RoleMember        Role = "member"
)

// ValidRoles is the canonical set of accepted role strings.
var ValidRoles = map[Role]bool{
	RoleRoot: true, RoleAdmin: true, RoleProjectLeader: true,
	RoleTeamLead: true, RoleMember: true,
}

// IsRoot reports whether r is the unrestricted root identity.
func (r Role) IsRoot() bool { return r == RoleRoot }

// IsElevated reports whether r belongs to the elevated tier. Root is not
// part of the tier; use CanAdminister for authorization checks.
func (r Role) IsElevated() bool {
	switch r {
	case RoleAdmin, RoleProjectLeader, RoleTeamLead:
		return true
	default:
		return false
	}
}

// CanAdminister reports whether r may override locks, reset nodes and
// manage the registry.
func (r Role) CanAdminister() bool { return r.IsRoot() || r.IsElevated() }

// ParseRole accepts both the stored form ("project_leader") and the
// display form ("Project Leader").
func ParseRole(s string) (Role, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	r := Role(norm)
	if !ValidRoles[r] {
		return "", fmt.Errorf("invalid role %q (valid: root, admin, project_leader, team_lead, member)", s)
	}
	return r, nil
}

// SubNodeTier classifies a lockable unit by architectural layer.
type SubNodeTier string

const (
	TierInfrastructure SubNodeTier = "Infrastructure"
	TierBackend        SubNodeTier = "Backend"
	TierFrontend       SubNodeTier = "Frontend"
	TierDatabase       SubNodeTier = "Database"
	TierMobile         SubNodeTier = "Mobile"
)

// ValidTiers is the canonical set of accepted sub-node tiers.
var ValidTiers = map[SubNodeTier]bool{
	TierInfrastructure: true, TierBackend: true, TierFrontend: true,
	TierDatabase: true, TierMobile: true,
}

// ParseTier matches a tier name case-insensitively.
func ParseTier(s string) (SubNodeTier, error) {
	for t := range ValidTiers {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("invalid tier %q (valid: Infrastructure, Backend, Frontend, Database, Mobile)", s)
}

type AuditKind string

const (
	AuditLock         AuditKind = "LOCK"
	AuditUnlock       AuditKind = "UNLOCK"
	AuditOverride     AuditKind = "OVERRIDE"
	AuditSyncComplete AuditKind = "SYNC_COMPLETE"
	AuditReset        AuditKind = "RESET"
	AuditExpire       AuditKind = "EXPIRE"
)

var ValidAuditKinds = map[AuditKind]bool{
	AuditLock: true, AuditUnlock: true, AuditOverride: true,
	AuditSyncComplete: true, AuditReset: true, AuditExpire: true,
}

// ReleasesLock reports whether entries of this kind end a sync session.
func (k AuditKind) ReleasesLock() bool {
	switch k {
	case AuditUnlock, AuditOverride, AuditSyncComplete, AuditExpire:
		return true
	default:
		return false
	}
}

type RiskLevel string

const (
	RiskLow  RiskLevel = "LOW"
	RiskHigh RiskLevel = "HIGH"
)

// CommitStatus is a member's progress on one sub-node in the release matrix.
type CommitStatus string

const (
	StatusCommitting   CommitStatus = "COMMITTING"
	StatusCommitted    CommitStatus = "COMMITTED"
	StatusNotCommitted CommitStatus = "NOT_COMMITTED"
)

// ResetMode selects what a node reset does with the node's audit history.
type ResetMode string

const (
	ResetPurge   ResetMode = "purge"
	ResetArchive ResetMode = "archive"
)

func ParseResetMode(s string) (ResetMode, error) {
	switch m := ResetMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ResetPurge, ResetArchive:
		return m, nil
	}
	return "", fmt.Errorf("invalid reset mode %q (valid: purge, archive)", s)
}
