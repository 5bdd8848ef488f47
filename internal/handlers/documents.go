package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klinikpos/clinicsyncgo/internal/models"
	"github.com/klinikpos/clinicsyncgo/internal/services/records"
	"github.com/klinikpos/clinicsyncgo/internal/store"
)

// listDocuments returns all documents in the local store
func (r *Router) listDocuments(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.svc.ListDocuments())
}

// createDocument validates and stores a new document; a draft workflow is
// attached automatically and the remote write rides the outbox.
func (r *Router) createDocument(w http.ResponseWriter, req *http.Request) {
	var in records.CreateDocumentInput
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	candidate := models.Document{
		PatientID:     in.PatientID,
		FileName:      in.FileName,
		DocumentType:  in.DocumentType,
		ExtractedInfo: in.ExtractedInfo,
		Status:        models.DocumentStatusPending,
	}
	if result := records.ValidateDocument(candidate); !result.IsValid {
		respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	doc, err := r.svc.CreateDocument(in, actorFromContext(req))
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, doc)
}

// getDocument returns one document
func (r *Router) getDocument(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	doc, err := r.svc.GetDocument(id)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// updateDocument applies a partial update
func (r *Router) updateDocument(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	// Patches are strict: unknown keys are rejected instead of silently
	// dropped.
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	var patch models.DocumentPatch
	if err := dec.Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	doc, err := r.svc.UpdateDocument(id, patch)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// deleteDocument removes a document and its attached workflow
func (r *Router) deleteDocument(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	if err := r.svc.DeleteDocument(id); err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// ProcessRequest names the scanned image to run extraction on
type ProcessRequest struct {
	ImagePath string `json:"imagePath"`
}

// processDocument runs OCR extraction over a scanned document
func (r *Router) processDocument(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	var pr ProcessRequest
	if err := json.NewDecoder(req.Body).Decode(&pr); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	doc, err := r.svc.ProcessDocumentOCR(req.Context(), id, pr.ImagePath)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// bulkOperation runs one operation kind over many documents. The response is
// always 200: per-item failures are reported inside the result.
func (r *Router) bulkOperation(w http.ResponseWriter, req *http.Request) {
	var bulkReq records.BulkRequest
	if err := json.NewDecoder(req.Body).Decode(&bulkReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if bulkReq.ActorID == "" {
		bulkReq.ActorID = actorFromContext(req)
	}

	result := r.svc.BulkOperation(req.Context(), bulkReq)
	respondJSON(w, http.StatusOK, result)
}
