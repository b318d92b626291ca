package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/commitguard/internal/contract"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/service"
)

func (h *Handler) handleMe(w http.ResponseWriter, _ *http.Request, caller domain.User) error {
	writeJSON(w, http.StatusOK, contract.FromUser(&caller))
	return nil
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	users, err := h.svc.Users.List(r.Context(), caller)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromUsers(users))
	return nil
}

func (h *Handler) handleProvisionUser(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	var req contract.ProvisionUserRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	u, err := req.ToUser()
	if err != nil {
		return err
	}
	if err := h.svc.Users.Provision(r.Context(), caller, u); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, contract.FromUser(u))
	return nil
}

func (h *Handler) handleListNodes(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	nodes, err := h.svc.Registry.ListNodes(r.Context(), caller)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromNodes(nodes))
	return nil
}

func (h *Handler) handleCreateNode(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	var req contract.CreateNodeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	n, err := h.svc.Registry.CreateNode(r.Context(), caller, req.ToInput())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, contract.FromNode(n))
	return nil
}

func (h *Handler) handleGetNode(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	n, err := h.svc.Registry.GetNode(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromNode(n))
	return nil
}

func (h *Handler) handleUpdateNode(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	var req contract.UpdateNodeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	n, err := h.svc.Registry.UpdateNode(r.Context(), caller, r.PathValue("id"), req.ToPatch())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromNode(n))
	return nil
}

func (h *Handler) handleDeleteNode(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	if err := h.svc.Registry.DeleteNode(r.Context(), caller, r.PathValue("id")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) handleToggleDone(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	res, err := h.svc.Done.ToggleDone(r.Context(), r.PathValue("id"), caller)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromDone(res))
	return nil
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	res, err := h.svc.Reset.ResetNode(r.Context(), r.PathValue("id"), caller)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromReset(res))
	return nil
}

func (h *Handler) handleMatrix(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	m, err := h.svc.Stats.Matrix(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromMatrix(m))
	return nil
}

func (h *Handler) handleListLocks(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	locks, err := h.svc.Locks.ListLocks(r.Context(), caller)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromLocks(locks))
	return nil
}

func (h *Handler) handleEngage(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	var req contract.EngageRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	l, err := h.svc.Locks.Engage(r.Context(), req.NodeID, req.SubNodeID, caller)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, contract.FromLock(l))
	return nil
}

func (h *Handler) handleAbort(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	rel, err := h.svc.Locks.Abort(r.Context(), r.PathValue("subNodeId"), caller)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromReleaseResult(rel))
	return nil
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	rel, err := h.svc.Locks.Finalize(r.Context(), r.PathValue("subNodeId"), caller)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromReleaseResult(rel))
	return nil
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	q, err := parseAuditQuery(r)
	if err != nil {
		return err
	}
	entries, err := h.svc.Audit.Query(r.Context(), caller, q)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromAuditEntries(entries))
	return nil
}

// parseAuditQuery reads node, kind (comma separated), since (RFC 3339),
// limit and superseded from the query string.
func parseAuditQuery(r *http.Request) (service.AuditQuery, error) {
	v := r.URL.Query()
	q := service.AuditQuery{NodeID: v.Get("node")}
	if raw := v.Get("kind"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			kind := domain.AuditKind(strings.ToUpper(strings.TrimSpace(k)))
			if !domain.ValidAuditKinds[kind] {
				return q, domain.Fail(domain.CodeInvalidInput, "invalid audit kind %q", k)
			}
			q.Kinds = append(q.Kinds, kind)
		}
	}
	if raw := v.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, domain.Fail(domain.CodeInvalidInput, "invalid since %q: want RFC 3339", raw)
		}
		q.Since = &since
	}
	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return q, domain.Fail(domain.CodeInvalidInput, "invalid limit %q", raw)
		}
		q.Limit = n
	}
	if raw := v.Get("superseded"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return q, domain.Fail(domain.CodeInvalidInput, "invalid superseded %q", raw)
		}
		q.IncludeSuperseded = b
	}
	return q, nil
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	a, err := h.svc.Stats.Analysis(r.Context(), caller, h.now())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromAnalysis(a))
	return nil
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request, caller domain.User) error {
	snap, err := h.svc.View.Snapshot(r.Context(), caller)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, contract.FromSnapshot(snap))
	return nil
}
