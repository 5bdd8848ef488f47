package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klinikpos/clinicsyncgo/internal/store"
	"github.com/klinikpos/clinicsyncgo/internal/workflow"
)

// listWorkflows returns all workflows in the local store
func (r *Router) listWorkflows(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.store.ListWorkflows())
}

// getWorkflow returns one workflow from the local store
func (r *Router) getWorkflow(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	wf, err := r.store.FindWorkflow(id)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, wf)
}

// TransitionRequest names the target status for a workflow
type TransitionRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// transitionWorkflow moves a workflow to a new status. Illegal jumps come
// back as 409 with the offending edge.
func (r *Router) transitionWorkflow(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var tr TransitionRequest
	if err := json.NewDecoder(req.Body).Decode(&tr); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if tr.Status == "" {
		respondError(w, http.StatusBadRequest, "status is required")
		return
	}

	wf, err := r.machine.Transition(id, tr.Status, actorFromContext(req), tr.Notes)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		var invalid *workflow.InvalidTransitionError
		if errors.As(err, &invalid) {
			respondError(w, http.StatusConflict, invalid.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, wf)
}

// getRemoteWorkflow fetches the server-side view of a workflow directly. A
// remote failure here never touches the local copy.
func (r *Router) getRemoteWorkflow(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	wf, err := r.remote.GetWorkflow(req.Context(), id)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, wf)
}

// patientRights checks coverage for a national id against the remote backend
func (r *Router) patientRights(w http.ResponseWriter, req *http.Request) {
	nationalID := mux.Vars(req)["nationalId"]
	rights, err := r.remote.QueryPatientRights(req.Context(), nationalID)
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rights)
}
