package http

import (
	"net/http"

	"github.com/baron-png/quality-core/internal/domain/audit"
)

// CreateProgram creates an audit program in DRAFT for the caller's tenant.
func (h *Handlers) CreateProgram(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[audit.CreateRequest](w, r)
	if !ok {
		return
	}

	p, err := h.Audit.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "audit program not found")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) ListPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.Audit.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "audit program not found")
		return
	}
	writeJSON(w, http.StatusOK, programs)
}

func (h *Handlers) GetProgram(w http.ResponseWriter, r *http.Request) {
	p, err := h.Audit.Get(r.Context(), urlParam(r, "programID"))
	if err != nil {
		writeDomainError(w, err, "audit program not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SubmitProgram moves a DRAFT program to PENDING_APPROVAL.
func (h *Handlers) SubmitProgram(w http.ResponseWriter, r *http.Request) {
	h.transitionProgram(w, r, audit.ActionSubmit)
}

// ApproveProgram moves a PENDING_APPROVAL program to ACTIVE.
func (h *Handlers) ApproveProgram(w http.ResponseWriter, r *http.Request) {
	h.transitionProgram(w, r, audit.ActionApprove)
}

// RejectProgram returns a PENDING_APPROVAL program to DRAFT.
func (h *Handlers) RejectProgram(w http.ResponseWriter, r *http.Request) {
	h.transitionProgram(w, r, audit.ActionReject)
}

// ReopenProgram returns an ACTIVE program to DRAFT for rework.
func (h *Handlers) ReopenProgram(w http.ResponseWriter, r *http.Request) {
	h.transitionProgram(w, r, audit.ActionReopen)
}

func (h *Handlers) transitionProgram(w http.ResponseWriter, r *http.Request, action audit.Action) {
	p, err := h.Audit.Transition(r.Context(), urlParam(r, "programID"), action)
	if err != nil {
		writeDomainError(w, err, "audit program not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
