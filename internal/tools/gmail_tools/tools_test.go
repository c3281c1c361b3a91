package gmail_tools

import (
	"context"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"gmailbridge/internal/google"
	"gmailbridge/internal/server"
	"gmailbridge/internal/vault"
)

func newTestServerContext(t *testing.T) *server.ServerContext {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	v := vault.New(filepath.Join(t.TempDir(), "credentials.encrypted"), logger)
	oauth := google.NewManager(v, logger, google.ManagerOptions{})

	sc, err := server.NewServerContext(context.Background(), server.Config{
		Vault:  v,
		OAuth:  oauth,
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("NewServerContext: %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func requestWithArgs(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("unexpected content type: %T", result.Content[0])
	}
	return text.Text
}

func TestParseAddressList(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		required bool
		want     []string
		wantErr  bool
	}{
		{"single address", "a@b.c", true, []string{"a@b.c"}, false},
		{"array", []interface{}{"a@b.c", "d@e.f"}, true, []string{"a@b.c", "d@e.f"}, false},
		{"nil optional", nil, false, nil, false},
		{"nil required", nil, true, nil, true},
		{"empty string required", "", true, nil, true},
		{"empty string optional", "", false, nil, false},
		{"non-string element", []interface{}{"a@b.c", 7}, true, nil, true},
		{"wrong type", 42, false, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAddressList(tt.input, "to", tt.required)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandleSendEmailValidation(t *testing.T) {
	sc := newTestServerContext(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing to", map[string]interface{}{"subject": "s", "body": "b"}, "to is required"},
		{"missing subject", map[string]interface{}{"to": "a@b.c", "body": "b"}, "subject is required"},
		{"missing body", map[string]interface{}{"to": "a@b.c", "subject": "s"}, "body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handleSendEmail(context.Background(), requestWithArgs(tt.args), sc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if got := resultText(t, result); !strings.Contains(got, tt.want) {
				t.Errorf("result = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestHandleStateChangeRequiresMessageIDs(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleStateChange(context.Background(), requestWithArgs(map[string]interface{}{}), sc, stateChangeTools[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result without messageIds")
	}
}

func TestHandleModifyLabelsRequiresLabels(t *testing.T) {
	sc := newTestServerContext(t)

	result, err := handleModifyLabels(context.Background(), requestWithArgs(map[string]interface{}{
		"messageIds": "msg-1",
	}), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result without labels")
	}
	if got := resultText(t, result); !strings.Contains(got, "addLabels or removeLabels") {
		t.Errorf("result = %q", got)
	}
}

func TestHandleReadEmailsWithoutCredentialsReturnsToolError(t *testing.T) {
	sc := newTestServerContext(t)

	// Empty vault: the handler must surface the failure as a tool error,
	// not a transport error
	result, err := handleReadEmails(context.Background(), requestWithArgs(map[string]interface{}{}), sc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result with empty vault")
	}
}

func TestStateChangeToolNames(t *testing.T) {
	want := []string{
		"gmail_mark_as_read",
		"gmail_mark_as_unread",
		"gmail_mark_as_spam",
		"gmail_move_to_trash",
		"gmail_add_star",
	}

	if len(stateChangeTools) != len(want) {
		t.Fatalf("expected %d state change tools, got %d", len(want), len(stateChangeTools))
	}
	for i, tool := range stateChangeTools {
		if tool.name != want[i] {
			t.Errorf("tool[%d] = %q, want %q", i, tool.name, want[i])
		}
	}
}
