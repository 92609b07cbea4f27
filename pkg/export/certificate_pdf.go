package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// CertificateData carries the fields rendered onto the certificate PDF.
type CertificateData struct {
	UUID        string
	Institution string
	LearnerName string
	Title       string
	Mention     string
	IssueDate   string
}

// CertificatePDF renders issued certificates into a printable A4 document.
type CertificatePDF struct{}

// NewCertificatePDF constructs a certificate renderer.
func NewCertificatePDF() *CertificatePDF {
	return &CertificatePDF{}
}

// Render produces the PDF bytes for one certificate.
func (e *CertificatePDF) Render(data CertificateData) ([]byte, error) {
	if data.LearnerName == "" || data.Title == "" {
		return nil, fmt.Errorf("learner name and title are required")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Times", "B", 28)
	pdf.CellFormat(0, 16, "CERTIFICATE", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Times", "", 13)
	pdf.CellFormat(0, 8, data.Institution, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 8, "certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Times", "B", 20)
	pdf.CellFormat(0, 12, data.LearnerName, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Times", "", 13)
	pdf.CellFormat(0, 8, "has been awarded", "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "B", 16)
	pdf.CellFormat(0, 10, data.Title, "", 1, "C", false, 0, "")
	if data.Mention != "" {
		pdf.SetFont("Times", "I", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("Mention: %s", data.Mention), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Times", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Issued on %s", data.IssueDate), "", 1, "C", false, 0, "")
	pdf.SetFont("Courier", "", 9)
	pdf.CellFormat(0, 7, fmt.Sprintf("Verification ID: %s", data.UUID), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
