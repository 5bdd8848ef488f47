package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klinikpos/clinicsyncgo/internal/models"
	"github.com/klinikpos/clinicsyncgo/internal/services/printer"
	"github.com/klinikpos/clinicsyncgo/internal/services/records"
	"github.com/klinikpos/clinicsyncgo/internal/store"
)

// listEReceipts returns all e-receipts in the local store
func (r *Router) listEReceipts(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.svc.ListEReceipts())
}

// createEReceipt validates and stores a new e-receipt
func (r *Router) createEReceipt(w http.ResponseWriter, req *http.Request) {
	var in records.CreateEReceiptInput
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	candidate := models.EReceipt{
		PatientID:          in.PatientID,
		PrescriptionNumber: in.PrescriptionNumber,
		NationalID:         in.NationalID,
		TotalAmount:        in.TotalAmount,
	}
	for _, m := range in.Materials {
		candidate.Materials = append(candidate.Materials, models.EReceiptMaterial{
			Code:     m.Code,
			Name:     m.Name,
			Quantity: m.Quantity,
		})
	}
	if result := records.ValidateEReceipt(candidate); !result.IsValid {
		respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	receipt, err := r.svc.CreateEReceipt(in)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}

// getEReceipt returns one e-receipt
func (r *Router) getEReceipt(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	receipt, err := r.svc.GetEReceipt(id)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

// updateEReceipt applies a partial update
func (r *Router) updateEReceipt(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]

	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	var patch models.EReceiptPatch
	if err := dec.Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	receipt, err := r.svc.UpdateEReceipt(id, patch)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

// deliverMaterial marks one material line delivered and returns the receipt
// with its recomputed aggregate status.
func (r *Router) deliverMaterial(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	id := vars["id"]
	materialID := vars["materialId"]

	var delivery models.MaterialDelivery
	if err := json.NewDecoder(req.Body).Decode(&delivery); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	receipt, err := r.svc.DeliverMaterial(id, materialID, delivery)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

// deliverySlip renders the printable PDF for an e-receipt handover
func (r *Router) deliverySlip(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	receipt, err := r.svc.GetEReceipt(id)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pdf, err := printer.GenerateDeliverySlipPDF(receipt)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"delivery-slip-%s.pdf\"", id))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// listUTSRecords returns the device notification trail
func (r *Router) listUTSRecords(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, r.svc.ListUTSRecords())
}
