package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/klinikpos/clinicsyncgo/internal/config"
	"github.com/klinikpos/clinicsyncgo/internal/database"
	"github.com/klinikpos/clinicsyncgo/internal/middleware"
	"github.com/klinikpos/clinicsyncgo/internal/models"
	"github.com/klinikpos/clinicsyncgo/internal/outbox"
	"github.com/klinikpos/clinicsyncgo/internal/services/medula"
	"github.com/klinikpos/clinicsyncgo/internal/services/records"
	"github.com/klinikpos/clinicsyncgo/internal/store"
	"github.com/klinikpos/clinicsyncgo/internal/websocket"
	"github.com/klinikpos/clinicsyncgo/internal/workflow"
)

// Router wraps the mux router and the engine's components
type Router struct {
	*mux.Router
	db         *database.DB
	cfg        *config.Config
	store      *store.LocalStore
	svc        *records.Service
	machine    *workflow.Machine
	dispatcher *outbox.Dispatcher
	remote     *medula.Client
	hub        *websocket.Hub
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, st *store.LocalStore, svc *records.Service, machine *workflow.Machine, dispatcher *outbox.Dispatcher, remote *medula.Client, hub *websocket.Hub) *Router {
	r := &Router{
		Router:     mux.NewRouter(),
		db:         db,
		cfg:        cfg,
		store:      st,
		svc:        svc,
		machine:    machine,
		dispatcher: dispatcher,
		remote:     remote,
		hub:        hub,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// WebSocket endpoint for terminal change notifications
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWs(hub, w, req)
	})

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")

	authRequired := middleware.AuthMiddleware(cfg.JWTSecret)

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authRequired)
	api.HandleFunc("/status", r.getStatus).Methods("GET")

	// Document routes
	docs := api.PathPrefix("/documents").Subrouter()
	docs.HandleFunc("", r.listDocuments).Methods("GET")
	docs.HandleFunc("", r.createDocument).Methods("POST")
	docs.HandleFunc("/bulk", r.bulkOperation).Methods("POST")
	docs.HandleFunc("/{id}", r.getDocument).Methods("GET")
	docs.HandleFunc("/{id}", r.updateDocument).Methods("PUT")
	docs.HandleFunc("/{id}", r.deleteDocument).Methods("DELETE")
	docs.HandleFunc("/{id}/process", r.processDocument).Methods("POST")

	// E-receipt routes
	rx := api.PathPrefix("/ereceipts").Subrouter()
	rx.HandleFunc("", r.listEReceipts).Methods("GET")
	rx.HandleFunc("", r.createEReceipt).Methods("POST")
	rx.HandleFunc("/{id}", r.getEReceipt).Methods("GET")
	rx.HandleFunc("/{id}", r.updateEReceipt).Methods("PUT")
	rx.HandleFunc("/{id}/materials/{materialId}/deliver", r.deliverMaterial).Methods("POST")
	rx.HandleFunc("/{id}/delivery-slip", r.deliverySlip).Methods("GET")

	// Workflow routes
	wf := api.PathPrefix("/workflows").Subrouter()
	wf.HandleFunc("", r.listWorkflows).Methods("GET")
	wf.HandleFunc("/{id}", r.getWorkflow).Methods("GET")
	wf.HandleFunc("/{id}/transition", r.transitionWorkflow).Methods("POST")
	wf.HandleFunc("/{id}/remote", r.getRemoteWorkflow).Methods("GET")

	// Patient rights (remote read)
	api.HandleFunc("/patients/{nationalId}/rights", r.patientRights).Methods("GET")

	// UTS notification records
	api.HandleFunc("/uts", r.listUTSRecords).Methods("GET")

	// Statistics
	api.HandleFunc("/stats", r.getStatistics).Methods("GET")

	// Outbox queue introspection
	ob := api.PathPrefix("/outbox").Subrouter()
	ob.HandleFunc("/status", r.outboxStatus).Methods("GET")
	ob.HandleFunc("/drain", r.drainOutbox).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"server": "local",
	})
}

// getStatus returns the current status
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":   "running",
		"terminal": r.cfg.TerminalID,
		"version":  "1.0.0",
	})
}

// actorFromContext pulls the authenticated user's email out of the JWT
// claims, falling back to the system actor for unauthenticated paths.
func actorFromContext(req *http.Request) string {
	claims, ok := req.Context().Value(middleware.UserContextKey).(jwt.MapClaims)
	if !ok {
		return models.SystemActor
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		return email
	}
	return models.SystemActor
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
