package printer

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/klinikpos/clinicsyncgo/internal/models"
	"github.com/skip2/go-qrcode"
)

// GenerateDeliverySlipPDF renders a printable A4 delivery slip for an
// e-receipt: header with patient and prescription info, one row per material
// line, and a QR code carrying the prescription number for the handover scan.
func GenerateDeliverySlipPDF(r models.EReceipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Teslimat Fisi / Delivery Slip", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("E-Receipt: %s", r.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Prescription No: %s", r.PrescriptionNumber), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("National ID: %s", r.NationalID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s / %s", r.Status, r.DeliveryStatus), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Material table
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(25, 7, "Code", "1", 0, "L", false, 0, "")
	pdf.CellFormat(75, 7, "Material", "1", 0, "L", false, 0, "")
	pdf.CellFormat(15, 7, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 7, "Delivered", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 7, "Barcode/Serial", "1", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, m := range r.Materials {
		serial := m.Barcode
		if m.SerialNumber != "" {
			serial = m.SerialNumber
		}
		pdf.CellFormat(25, 7, m.Code, "1", 0, "L", false, 0, "")
		pdf.CellFormat(75, 7, m.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", m.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", m.DeliveredQuantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 7, serial, "1", 1, "L", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 7, fmt.Sprintf("Total: %.2f TL", r.TotalAmount), "", 1, "R", false, 0, "")

	// QR code for the handover scan
	qrPng, err := qrcode.Encode(r.PrescriptionNumber, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR: %w", err)
	}

	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	reader := bytes.NewReader(qrPng)
	_ = pdf.RegisterImageOptionsReader("qr_rx", imgOptions, reader)
	pdf.ImageOptions("qr_rx", 15, pdf.GetY()+4, 35, 35, false, imgOptions, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
