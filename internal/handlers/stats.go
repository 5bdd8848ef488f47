package handlers

import "net/http"

// getStatistics computes the dashboard summary on demand
func (r *Router) getStatistics(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.svc.Statistics())
}
