package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"net/smtp"
	"reflect"
	"strings"
	"testing"
	"time"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	raw  []byte
}

func newTestMailer(captured *capturedMail) *SMTPMailer {
	m := NewSMTPMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "bot@example.com", Password: "pw"}, nil)
	m.now = func() time.Time { return time.Date(2025, time.October, 6, 9, 0, 0, 0, time.UTC) }
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		*captured = capturedMail{addr: addr, from: from, to: to, raw: msg}
		return nil
	}
	return m
}

func TestSendBuildsRelatedMessage(t *testing.T) {
	t.Parallel()

	var captured capturedMail
	mailer := newTestMailer(&captured)

	err := mailer.Send(context.Background(), ports.Email{
		Bcc:      []string{"a@b.com", "c@d.org"},
		Subject:  "[Readiness GCP] - Novedades",
		HTMLBody: `<p>Hola</p><img src="cid:summaryImage">`,
		InlineImages: []domain.InlineImage{{
			ContentID: "summaryImage", Filename: "summary.png", ContentType: "image/png", Data: []byte("png-bytes"),
		}},
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if captured.addr != "smtp.example.com:587" || captured.from != "bot@example.com" {
		t.Fatalf("unexpected envelope: %s %s", captured.addr, captured.from)
	}
	if !reflect.DeepEqual(captured.to, []string{"a@b.com", "c@d.org"}) {
		t.Fatalf("unexpected recipients: %v", captured.to)
	}
	if bytes.Contains(captured.raw, []byte("a@b.com")) {
		t.Fatalf("bcc recipients leaked into headers")
	}

	msg, err := netmail.ReadMessage(bytes.NewReader(captured.raw))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	if err != nil || subject != "[Readiness GCP] - Novedades" {
		t.Fatalf("unexpected subject %q (%v)", subject, err)
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/related" {
		t.Fatalf("unexpected content type %q (%v)", mediaType, err)
	}

	reader := multipart.NewReader(msg.Body, params["boundary"])
	htmlPart, err := reader.NextPart()
	if err != nil {
		t.Fatalf("read html part: %v", err)
	}
	html, _ := io.ReadAll(htmlPart)
	if !strings.Contains(string(html), "cid:summaryImage") {
		t.Fatalf("html part misses the inline reference: %s", html)
	}

	imgPart, err := reader.NextPart()
	if err != nil {
		t.Fatalf("read image part: %v", err)
	}
	if imgPart.Header.Get("Content-ID") != "<summaryImage>" {
		t.Fatalf("unexpected content id: %s", imgPart.Header.Get("Content-ID"))
	}
}

func TestSendWithoutRecipients(t *testing.T) {
	t.Parallel()

	var captured capturedMail
	if err := newTestMailer(&captured).Send(context.Background(), ports.Email{Subject: "x"}); err == nil {
		t.Fatalf("expected error without recipients")
	}
	if captured.raw != nil {
		t.Fatalf("nothing should be sent")
	}
}

func TestWriteBase64LinesWrapsAt76(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte{0xfa, 0x01, 0x7e}, 40)
	var buf bytes.Buffer
	if err := writeBase64Lines(&buf, data); err != nil {
		t.Fatalf("writeBase64Lines returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	if len(lines) != 3 || len(lines[0]) != 76 || len(lines[1]) != 76 || len(lines[2]) != 8 {
		t.Fatalf("unexpected line layout: %q", lines)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(lines, ""))
	if err != nil || !bytes.Equal(decoded, data) {
		t.Fatalf("round trip mismatch: %v", err)
	}
}
