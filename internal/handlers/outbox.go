package handlers

import "net/http"

// outboxStatus reports queue depth per status
func (r *Router) outboxStatus(w http.ResponseWriter, req *http.Request) {
	counts, err := r.dispatcher.Status()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

// drainOutbox forces one drain cycle instead of waiting for the ticker
func (r *Router) drainOutbox(w http.ResponseWriter, req *http.Request) {
	if err := r.dispatcher.DrainOnce(req.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	counts, err := r.dispatcher.Status()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "drained",
		"queue":  counts,
	})
}
