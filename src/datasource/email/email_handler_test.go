package email

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"SiamikDashboard/src/storage"
)

func newTestHandler(t *testing.T) (*DatasetAttachmentHandler, string) {
	t.Helper()
	dir := t.TempDir()
	h := NewDatasetAttachmentHandler("SIAMIK", dir, "",
		[]string{"data/Data_Responden.csv", "data_final_transformed (1).csv"},
		storage.NewWriterLogger(io.Discard))
	return h, dir
}

func TestAccepts(t *testing.T) {
	h, _ := newTestHandler(t)
	tests := map[string]bool{
		"Data_Responden.csv":             true,
		"data_responden.CSV":             true,
		"data_final_transformed (1).csv": true,
		"Data_Responden.xlsx":            false,
		"other.csv":                      false,
		"Data_Responden.csv.exe":         false,
	}
	for name, want := range tests {
		if got := h.Accepts(name); got != want {
			t.Errorf("Accepts(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestHandleSavesDatasetAttachments(t *testing.T) {
	h, dir := newTestHandler(t)
	e := &Email{
		UID:     5,
		Subject: "SIAMIK terbaru",
		Attachments: []*Attachment{
			{Filename: "Data_Responden.csv", Content: []byte(attachmentCSV)},
			{Filename: "notes.csv", Content: []byte(attachmentCSV)},
			{Filename: "data_final_transformed (1).csv", Content: []byte("a,b\n")},
		},
	}

	saved, err := h.Handle(e)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "Data_Responden.csv")
	if len(saved) != 1 || saved[0] != want {
		t.Fatalf("saved = %v, want [%s]", saved, want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != attachmentCSV {
		t.Errorf("saved content = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data_final_transformed (1).csv")); err == nil {
		t.Error("header-only attachment should not be saved")
	}

	// 同一UID不会重复保存
	if err := os.Remove(want); err != nil {
		t.Fatal(err)
	}
	again, err := h.Handle(e)
	if err != nil || len(again) != 0 {
		t.Errorf("second Handle = %v, %v", again, err)
	}
}

func TestHandleSkipsOtherSubjects(t *testing.T) {
	h, _ := newTestHandler(t)
	saved, err := h.Handle(&Email{
		UID:         9,
		Subject:     "Invoice",
		Attachments: []*Attachment{{Filename: "Data_Responden.csv", Content: []byte(attachmentCSV)}},
	})
	if err != nil || len(saved) != 0 {
		t.Errorf("got %v, %v", saved, err)
	}
	if h.isProcessed(9) {
		t.Error("unmatched mail should not be marked processed")
	}
}

func TestValidateAttachment(t *testing.T) {
	if err := ValidateAttachment(&Attachment{Filename: "a.csv", Content: []byte(attachmentCSV)}, ""); err != nil {
		t.Errorf("valid csv: %v", err)
	}
	if err := ValidateAttachment(&Attachment{Filename: "a.csv"}, ""); err == nil {
		t.Error("empty attachment should fail")
	}
	if err := ValidateAttachment(&Attachment{Filename: "a.xlsx", Content: []byte("not a zip")}, ""); err == nil {
		t.Error("broken xlsx should fail")
	}
}

type recordingHandler struct {
	handled []uint32
}

func (r *recordingHandler) Handle(e *Email) ([]string, error) {
	r.handled = append(r.handled, e.UID)
	return []string{e.Subject}, nil
}

func TestIngesterRun(t *testing.T) {
	svc := &fakeMailService{emails: []*Email{
		{UID: 1, Subject: "SIAMIK a"},
		{UID: 2, Subject: "spam"},
		{UID: 3, Subject: "SIAMIK b"},
	}}
	rec := &recordingHandler{}

	saved, err := NewIngester(svc, rec, "SIAMIK", storage.NewWriterLogger(io.Discard)).Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.handled) != 2 || len(saved) != 2 {
		t.Errorf("handled %v, saved %v", rec.handled, saved)
	}
}
