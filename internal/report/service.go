package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/signintech/gopdf"

	"medical-matrix/internal/insight"
)

type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error
}

// DefaultFontPaths are the DejaVu locations on common Linux images.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

type Service struct {
	tgClient           TelegramClient
	practitionerChatID int64
	fontPaths          []string
	now                func() time.Time
}

func NewService(tg TelegramClient, practitionerChatID int64, fontPaths []string) *Service {
	if len(fontPaths) == 0 {
		fontPaths = DefaultFontPaths
	}
	return &Service{
		tgClient:           tg,
		practitionerChatID: practitionerChatID,
		fontPaths:          fontPaths,
		now:                time.Now,
	}
}

// SendPractitionerReport renders the analysis as a PDF, posts a short notice
// and then the document to the practitioner chat. Nothing is sent when
// rendering fails.
func (s *Service) SendPractitionerReport(ctx context.Context, rec insight.DiagnosticRecord, suggestions []insight.Suggestion) error {
	if s.practitionerChatID == 0 {
		return fmt.Errorf("practitioner chat id is not configured")
	}

	pdfData, err := s.Render(rec, suggestions)
	if err != nil {
		return err
	}

	notice := fmt.Sprintf("Analysis #%d for patient %d: %d suggested pattern(s), report attached.", rec.ID, rec.PatientID, len(suggestions))
	if err := s.tgClient.SendMessage(ctx, s.practitionerChatID, notice); err != nil {
		return fmt.Errorf("failed to send report notice: %w", err)
	}

	fileName := fmt.Sprintf("analysis_%d.pdf", rec.ID)
	log.Info().Int64("diagnostic_id", rec.ID).Int64("chat_id", s.practitionerChatID).Msg("sending practitioner report")
	if err := s.tgClient.SendDocument(ctx, s.practitionerChatID, pdfData, fileName); err != nil {
		return fmt.Errorf("failed to send report document: %w", err)
	}
	return nil
}

// Render builds the PDF bytes for one analysis.
func (s *Service) Render(rec insight.DiagnosticRecord, suggestions []insight.Suggestion) ([]byte, error) {
	pdf, err := s.layout(rec, suggestions)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) layout(rec insight.DiagnosticRecord, suggestions []insight.Suggestion) (*gopdf.GoPdf, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.SetMargins(pageMargin, pageMargin, pageMargin, pageMargin)
	pdf.AddPage()

	if err := s.loadFont(pdf); err != nil {
		return nil, err
	}

	w := &pdfWriter{pdf: pdf}
	w.heading(20, "Functional Medicine Analysis")
	w.pdf.Br(30)

	w.font(12)
	w.line(fmt.Sprintf("Date: %s", s.now().Format("Jan 02, 2006 15:04")))
	w.line(fmt.Sprintf("Patient ID: %d", rec.PatientID))
	w.line(fmt.Sprintf("Analysis recorded: %s", rec.Timestamp.Format("Jan 02, 2006 15:04")))
	w.pdf.Br(10)

	w.section("Presenting symptoms", rec.Profile.Symptoms)
	w.section("Medical history", rec.Profile.MedicalHistory)
	w.section("Lab results", rec.Profile.LabResults)
	w.section("Lifestyle", rec.Profile.Lifestyle)
	w.section("Notes", rec.Profile.Notes)

	w.heading(14, "Suggested patterns")
	w.pdf.Br(15)
	w.font(11)
	for _, sg := range suggestions {
		w.wrapped(fmt.Sprintf("%d. %s (confidence %d%%)", sg.ID, sg.Condition, sg.Confidence))
		w.wrapped(sg.Reasoning)
		for _, ev := range sg.Evidence {
			w.wrapped("- " + ev)
		}
		w.pdf.Br(8)
	}

	if rec.PractitionerNotes != "" {
		w.section("Practitioner notes", rec.PractitionerNotes)
	}
	if w.err != nil {
		return nil, fmt.Errorf("failed to lay out report: %w", w.err)
	}
	return pdf, nil
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	var fontErr error
	for _, path := range s.fontPaths {
		err := pdf.AddTTFFont("DejaVu", path)
		if err == nil {
			return nil
		}
		fontErr = err
	}
	return fmt.Errorf("failed to load font for PDF, install ttf-dejavu: %w", fontErr)
}

const (
	pageMargin = 40.0
	textWidth  = 500.0
)

// pdfWriter keeps the first layout error so rendering code stays linear.
type pdfWriter struct {
	pdf *gopdf.GoPdf
	err error
}

// reserve starts a new page when the next h points would cross the bottom margin.
func (w *pdfWriter) reserve(h float64) {
	if w.err != nil {
		return
	}
	if w.pdf.GetY()+h > gopdf.PageSizeA4.H-pageMargin {
		w.pdf.AddPage()
	}
}

func (w *pdfWriter) font(size float64) {
	if w.err == nil {
		w.err = w.pdf.SetFont("DejaVu", "", size)
	}
}

func (w *pdfWriter) heading(size float64, text string) {
	w.font(size)
	w.reserve(size + 15)
	if w.err == nil {
		w.err = w.pdf.Cell(nil, text)
	}
}

func (w *pdfWriter) line(text string) {
	w.reserve(15)
	if w.err != nil {
		return
	}
	w.err = w.pdf.Cell(nil, text)
	w.pdf.Br(15)
}

func (w *pdfWriter) wrapped(text string) {
	if w.err != nil || text == "" {
		return
	}
	lines, err := w.pdf.SplitText(text, textWidth)
	if err != nil {
		w.err = err
		return
	}
	for _, l := range lines {
		w.reserve(12)
		if err := w.pdf.Cell(nil, l); err != nil {
			w.err = err
			return
		}
		w.pdf.Br(12)
	}
}

func (w *pdfWriter) section(title, body string) {
	if body == "" {
		return
	}
	w.heading(13, title)
	w.pdf.Br(15)
	w.font(11)
	w.wrapped(body)
	w.pdf.Br(8)
}
