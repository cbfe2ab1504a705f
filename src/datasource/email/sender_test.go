package email

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"SiamikDashboard/src/config"
)

func TestSMTPAddr(t *testing.T) {
	tests := []struct {
		in, addr, host string
	}{
		{"smtp.example.com", "smtp.example.com:465", "smtp.example.com"},
		{"smtp.example.com:587", "smtp.example.com:587", "smtp.example.com"},
	}
	for _, tt := range tests {
		addr, host := smtpAddr(tt.in)
		if addr != tt.addr || host != tt.host {
			t.Errorf("smtpAddr(%q) = %q, %q; want %q, %q", tt.in, addr, host, tt.addr, tt.host)
		}
	}
}

func TestSendExportNotConfigured(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := SendExport(cfg, "missing.csv"); !errors.Is(err, ErrMailNotConfigured) {
		t.Errorf("got %v, want ErrMailNotConfigured", err)
	}
}

func TestNewExportMessage(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SendEmail.Server = "smtp.example.com"
	cfg.SendEmail.Username = "dashboard@example.com"
	cfg.SendEmail.To = "kaprodi@example.com"

	path := filepath.Join(t.TempDir(), "siamik_filtered.csv")
	if err := os.WriteFile(path, []byte(attachmentCSV), 0644); err != nil {
		t.Fatal(err)
	}

	msg, err := NewExportMessage(cfg, path)
	if err != nil {
		t.Fatal(err)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "siamik_filtered.csv" {
		t.Errorf("attachments = %+v", msg.Attachments)
	}
	if msg.Subject != cfg.SendEmail.Subject || msg.To[0] != "kaprodi@example.com" {
		t.Errorf("message = %s -> %v", msg.Subject, msg.To)
	}

	if _, err := NewExportMessage(cfg, filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("missing attachment should fail")
	}
}
