package email

import (
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"SiamikDashboard/src/storage"
)

const attachmentCSV = "Fakultas,Prodi\nTeknik,Informatika\n"

func rawMessage(subject, filename string, content []byte) string {
	lines := []string{
		"From: Survey Bot <bot@example.com>",
		"To: admin@example.com",
		"Subject: " + subject,
		"Date: Mon, 12 Oct 2026 10:00:00 +0700",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="XYZ"`,
		"",
		"--XYZ",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Lihat lampiran.",
		"--XYZ",
		"Content-Type: text/csv",
		`Content-Disposition: attachment; filename="` + filename + `"`,
		"Content-Transfer-Encoding: base64",
		"",
		base64.StdEncoding.EncodeToString(content),
		"--XYZ--",
		"",
	}
	return strings.Join(lines, "\r\n")
}

func TestParseMessage(t *testing.T) {
	raw := rawMessage("=?utf-8?q?Data_SIAMIK_terbaru?=", "Data_Responden.csv", []byte(attachmentCSV))

	e, err := ParseMessage(42, strings.NewReader(raw), nil)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if e.UID != 42 {
		t.Errorf("uid = %d, want 42", e.UID)
	}
	if e.Subject != "Data SIAMIK terbaru" {
		t.Errorf("subject = %q", e.Subject)
	}
	if e.Date.IsZero() {
		t.Error("date not parsed")
	}
	if len(e.Attachments) != 1 {
		t.Fatalf("attachments = %d, want 1", len(e.Attachments))
	}
	a := e.Attachments[0]
	if a.Filename != "Data_Responden.csv" || string(a.Content) != attachmentCSV {
		t.Errorf("attachment = %s %q", a.Filename, a.Content)
	}
}

func TestFilterTargetEmails(t *testing.T) {
	now := time.Now()
	emails := []*Email{
		{UID: 1, Subject: "SIAMIK lama", Date: now.Add(-2 * time.Hour)},
		{UID: 2, Subject: "lain", Date: now},
		{UID: 3, Subject: "Update SIAMIK", Date: now.Add(-time.Hour)},
	}

	got := filterTargetEmails(emails, "SIAMIK")
	if len(got) != 2 || got[0].UID != 3 || got[1].UID != 1 {
		t.Errorf("got %v, want UIDs [3 1]", uids(got))
	}
	if len(filterTargetEmails(emails, "tidak ada")) != 0 {
		t.Error("unexpected match")
	}
}

type fakeMailService struct {
	emails       []*Email
	connectErr   error
	disconnected bool
}

func (f *fakeMailService) Connect() error                       { return f.connectErr }
func (f *fakeMailService) Disconnect()                          { f.disconnected = true }
func (f *fakeMailService) FetchUnreadEmails() ([]*Email, error) { return f.emails, nil }

func TestCheckAndProcessEmails(t *testing.T) {
	logger := storage.NewWriterLogger(io.Discard)
	svc := &fakeMailService{emails: []*Email{
		{UID: 7, Subject: "SIAMIK export"},
		{UID: 8, Subject: "newsletter"},
	}}

	got, err := CheckAndProcessEmails(svc, "SIAMIK", logger)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].UID != 7 {
		t.Errorf("got %v, want [7]", uids(got))
	}
	if !svc.disconnected {
		t.Error("connection not closed")
	}

	failing := &fakeMailService{connectErr: errors.New("refused")}
	if _, err := CheckAndProcessEmails(failing, "SIAMIK", logger); err == nil {
		t.Error("expected connect error")
	}
}

func uids(emails []*Email) []uint32 {
	out := make([]uint32, len(emails))
	for i, e := range emails {
		out[i] = e.UID
	}
	return out
}
