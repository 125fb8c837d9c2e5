package report

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-matrix/internal/insight"
)

type fakeTelegram struct {
	messages  []string
	documents []string
}

func (f *fakeTelegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeTelegram) SendDocument(ctx context.Context, chatID int64, data []byte, name string) error {
	f.documents = append(f.documents, name)
	return nil
}

func TestSendPractitionerReport_NoFontSendsNothing(t *testing.T) {
	tg := &fakeTelegram{}
	svc := NewService(tg, 1001, []string{"/nonexistent/DejaVuSans.ttf"})

	rec := insight.DiagnosticRecord{ID: 3, Profile: insight.SymptomProfile{Symptoms: "fatigue"}}
	err := svc.SendPractitionerReport(context.Background(), rec, insight.Evaluate(rec.Profile))

	assert.ErrorContains(t, err, "failed to load font")
	assert.Empty(t, tg.messages)
	assert.Empty(t, tg.documents)
}

func TestSendPractitionerReport_RequiresChat(t *testing.T) {
	tg := &fakeTelegram{}
	svc := NewService(tg, 0, nil)

	err := svc.SendPractitionerReport(context.Background(), insight.DiagnosticRecord{}, nil)
	assert.ErrorContains(t, err, "chat id")
	assert.Empty(t, tg.documents)
}

func TestNewService_DefaultFonts(t *testing.T) {
	svc := NewService(&fakeTelegram{}, 1, nil)
	assert.Equal(t, DefaultFontPaths, svc.fontPaths)
}

func installedFont(t *testing.T) []string {
	t.Helper()
	for _, path := range DefaultFontPaths {
		if _, err := os.Stat(path); err == nil {
			return []string{path}
		}
	}
	t.Skip("DejaVu font is not installed")
	return nil
}

func TestSendPractitionerReport_SendsNoticeAndDocument(t *testing.T) {
	tg := &fakeTelegram{}
	svc := NewService(tg, 1001, installedFont(t))

	rec := insight.DiagnosticRecord{ID: 3, PatientID: 9, Profile: insight.SymptomProfile{Symptoms: "fatigue and bloating"}}
	require.NoError(t, svc.SendPractitionerReport(context.Background(), rec, insight.Evaluate(rec.Profile)))

	require.Len(t, tg.messages, 1)
	assert.Contains(t, tg.messages[0], "patient 9")
	assert.Contains(t, tg.messages[0], "2 suggested pattern(s)")
	assert.Equal(t, []string{"analysis_3.pdf"}, tg.documents)
}

func TestLayout_LongRecordSpansPages(t *testing.T) {
	svc := NewService(&fakeTelegram{}, 1, installedFont(t))
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }

	long := strings.Repeat("Persistent fatigue after meals with bloating and poor sleep. ", 60)
	rec := insight.DiagnosticRecord{
		ID: 7,
		Profile: insight.SymptomProfile{
			Symptoms:       long,
			MedicalHistory: long,
			LabResults:     long,
		},
	}

	short, err := svc.layout(insight.DiagnosticRecord{ID: 8, Profile: insight.SymptomProfile{Symptoms: "tired"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, short.GetNumberOfPages())

	pdf, err := svc.layout(rec, insight.Evaluate(rec.Profile))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pdf.GetNumberOfPages(), 2)
}
