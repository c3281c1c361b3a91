package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

func TestHeaderValue(t *testing.T) {
	msg := &gmail.Message{
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "alice@example.com"},
				{Name: "Subject", Value: "hello"},
			},
		},
	}

	if got := HeaderValue(msg, "From"); got != "alice@example.com" {
		t.Errorf("HeaderValue(From) = %q", got)
	}
	if got := HeaderValue(msg, "X-Missing"); got != "" {
		t.Errorf("HeaderValue(X-Missing) = %q, want empty", got)
	}
	if got := HeaderValue(nil, "From"); got != "" {
		t.Errorf("HeaderValue(nil) = %q, want empty", got)
	}
	if got := HeaderValue(&gmail.Message{}, "From"); got != "" {
		t.Errorf("HeaderValue(no payload) = %q, want empty", got)
	}
}

func TestExtractMessageInfo(t *testing.T) {
	msg := &gmail.Message{
		Id:       "msg-1",
		ThreadId: "thread-1",
		Snippet:  "a short preview",
		LabelIds: []string{"INBOX", "UNREAD"},
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "alice@example.com"},
				{Name: "To", Value: "bob@example.com"},
				{Name: "Subject", Value: "status update"},
				{Name: "Date", Value: "Mon, 24 Aug 2026 10:00:00 +0000"},
			},
		},
	}

	info := ExtractMessageInfo(msg)

	if info.ID != "msg-1" || info.ThreadID != "thread-1" {
		t.Errorf("unexpected ids: %+v", info)
	}
	if info.From != "alice@example.com" || info.To != "bob@example.com" {
		t.Errorf("unexpected addresses: %+v", info)
	}
	if info.Subject != "status update" {
		t.Errorf("unexpected subject: %q", info.Subject)
	}
	if info.Snippet != "a short preview" {
		t.Errorf("unexpected snippet: %q", info.Snippet)
	}
	if len(info.LabelIDs) != 2 {
		t.Errorf("unexpected labels: %v", info.LabelIDs)
	}
}

func TestBuildMIMEPlainText(t *testing.T) {
	raw, err := buildMIME(&EmailMessage{
		To:      []string{"bob@example.com", "carol@example.com"},
		Cc:      []string{"dave@example.com"},
		Subject: "weekly report",
		Body:    "All systems nominal.",
	})
	if err != nil {
		t.Fatalf("buildMIME: %v", err)
	}

	for _, want := range []string{
		"To: bob@example.com, carol@example.com\r\n",
		"Cc: dave@example.com\r\n",
		"Subject: weekly report\r\n",
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n",
		"All systems nominal.",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("missing %q in message:\n%s", want, raw)
		}
	}
	if strings.Contains(raw, "Bcc:") {
		t.Error("Bcc header present without Bcc recipients")
	}
}

func TestBuildMIMEMultipartAlternative(t *testing.T) {
	raw, err := buildMIME(&EmailMessage{
		To:       []string{"bob@example.com"},
		Subject:  "newsletter",
		Body:     "plain fallback",
		HTMLBody: "<p>rich content</p>",
	})
	if err != nil {
		t.Fatalf("buildMIME: %v", err)
	}

	if !strings.Contains(raw, "Content-Type: multipart/alternative; boundary=") {
		t.Fatalf("expected multipart/alternative, got:\n%s", raw)
	}

	// Plain part must come before the HTML part so clients prefer HTML
	plainIdx := strings.Index(raw, "plain fallback")
	htmlIdx := strings.Index(raw, "<p>rich content</p>")
	if plainIdx == -1 || htmlIdx == -1 || plainIdx > htmlIdx {
		t.Errorf("part ordering wrong (plain=%d html=%d):\n%s", plainIdx, htmlIdx, raw)
	}

	if !strings.Contains(raw, "Content-Type: text/html; charset=\"UTF-8\"") {
		t.Error("missing html part content type")
	}
}

func TestBuildMIMEValidation(t *testing.T) {
	tests := []struct {
		name string
		msg  *EmailMessage
	}{
		{"no recipients", &EmailMessage{Subject: "s", Body: "b"}},
		{"no subject", &EmailMessage{To: []string{"a@b.c"}, Body: "b"}},
		{"no body", &EmailMessage{To: []string{"a@b.c"}, Subject: "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildMIME(tt.msg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestBuildMIMEEncodesAsBase64URLSafely(t *testing.T) {
	raw, err := buildMIME(&EmailMessage{
		To:      []string{"bob@example.com"},
		Subject: "Grüße aus München",
		Body:    "Servus",
	})
	if err != nil {
		t.Fatalf("buildMIME: %v", err)
	}

	// Subject with non-ASCII characters must be RFC 2047 encoded
	if !strings.Contains(raw, "Subject: =?UTF-8?b?") && !strings.Contains(raw, "Subject: =?UTF-8?B?") {
		t.Errorf("expected RFC 2047 encoded subject, got:\n%s", raw)
	}

	// The encoded form must survive the base64url round trip used by the API
	encoded := base64.URLEncoding.EncodeToString([]byte(raw))
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("base64url round trip: %v", err)
	}
	if string(decoded) != raw {
		t.Error("base64url round trip altered the message")
	}
}

func TestEncodeRFC2047(t *testing.T) {
	if got := encodeRFC2047("plain ascii"); got != "plain ascii" {
		t.Errorf("ASCII subject must pass through unchanged, got %q", got)
	}
	if got := encodeRFC2047("Grüße"); !strings.HasPrefix(got, "=?UTF-8?") {
		t.Errorf("non-ASCII subject must be encoded, got %q", got)
	}
}

func TestForEachCountsSuccessesAndFailures(t *testing.T) {
	c := &Client{logger: discardLogger()}

	calls := 0
	succeeded, err := c.ForEach(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, id string) error {
		calls++
		if id == "b" {
			return errors.New("boom")
		}
		return nil
	})

	if calls != 3 {
		t.Errorf("expected all ids processed despite failure, got %d calls", calls)
	}
	if succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", succeeded)
	}
	if err == nil || !strings.Contains(err.Error(), "1 of 3") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestForEachAllSucceed(t *testing.T) {
	c := &Client{logger: discardLogger()}

	succeeded, err := c.ForEach(context.Background(), []string{"a", "b"}, func(_ context.Context, id string) error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", succeeded)
	}
}

func TestBuildMIMEBoundariesAreUnique(t *testing.T) {
	msg := &EmailMessage{
		To:       []string{"bob@example.com"},
		Subject:  "s",
		HTMLBody: "<p>x</p>",
	}

	a, err := buildMIME(msg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := buildMIME(msg)
	if err != nil {
		t.Fatal(err)
	}

	if boundaryOf(t, a) == boundaryOf(t, b) {
		t.Error("expected distinct boundaries per message")
	}
}

func boundaryOf(t *testing.T, raw string) string {
	t.Helper()
	const marker = "boundary="
	i := strings.Index(raw, marker)
	if i == -1 {
		t.Fatalf("no boundary in message:\n%s", raw)
	}
	rest := raw[i+len(marker):]
	end := strings.Index(rest, "\r\n")
	if end == -1 {
		t.Fatalf("unterminated boundary parameter")
	}
	return rest[:end]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
