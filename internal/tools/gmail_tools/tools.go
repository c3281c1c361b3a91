package gmail_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"gmailbridge/internal/gmail"
	"gmailbridge/internal/server"
	"gmailbridge/internal/tools/common"
)

// RegisterGmailTools registers all Gmail tools with the MCP server.
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	readEmailsTool := mcp.NewTool("gmail_read_emails",
		mcp.WithDescription("Read emails from the Gmail inbox, optionally filtered by a search query"),
		mcp.WithString("query",
			mcp.Description("Gmail search query (e.g., 'is:unread', 'from:user@example.com'). Empty lists recent messages."),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of messages to return (default: 10)"),
		),
	)
	s.AddTool(readEmailsTool, common.InstrumentedToolHandler("gmail_read_emails", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleReadEmails(ctx, request, sc)
		}))

	sendEmailTool := mcp.NewTool("gmail_send_email",
		mcp.WithDescription("Send an email from the Gmail account"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient address (string) or array of addresses"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain-text email body"),
		),
		mcp.WithString("cc",
			mcp.Description("Cc address (string) or array of addresses"),
		),
		mcp.WithString("bcc",
			mcp.Description("Bcc address (string) or array of addresses"),
		),
		mcp.WithString("htmlBody",
			mcp.Description("Optional HTML body. When set the email is sent as multipart/alternative."),
		),
	)
	s.AddTool(sendEmailTool, common.InstrumentedToolHandler("gmail_send_email", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendEmail(ctx, request, sc)
		}))

	if err := registerLabelTools(s, sc); err != nil {
		return fmt.Errorf("failed to register label tools: %w", err)
	}

	return nil
}

func handleReadEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query := ""
	if queryVal, ok := args["query"].(string); ok {
		query = queryVal
	}

	maxResults := int64(10)
	if maxResultsVal, ok := args["maxResults"].(float64); ok && maxResultsVal > 0 {
		maxResults = int64(maxResultsVal)
	}

	var emails []*gmail.MessageInfo
	err := sc.WithClient(ctx, func(c *gmail.Client) error {
		var lerr error
		emails, lerr = c.ListMessages(ctx, query, maxResults)
		return lerr
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read emails: %v", err)), nil
	}

	if len(emails) == 0 {
		return mcp.NewToolResultText("No messages found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d messages:\n\n", len(emails))
	for i, email := range emails {
		fmt.Fprintf(&b, "%d. ID: %s\n   From: %s\n   Subject: %s\n   Date: %s\n   Snippet: %s\n\n",
			i+1, email.ID, email.From, email.Subject, email.Date, email.Snippet)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func handleSendEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	to, err := parseAddressList(args["to"], "to", true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cc, err := parseAddressList(args["cc"], "cc", false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bcc, err := parseAddressList(args["bcc"], "bcc", false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	subject, ok := args["subject"].(string)
	if !ok || subject == "" {
		return mcp.NewToolResultError("subject is required"), nil
	}
	body, ok := args["body"].(string)
	if !ok || body == "" {
		return mcp.NewToolResultError("body is required"), nil
	}

	htmlBody := ""
	if htmlVal, ok := args["htmlBody"].(string); ok {
		htmlBody = htmlVal
	}

	msg := &gmail.EmailMessage{
		To:       to,
		Cc:       cc,
		Bcc:      bcc,
		Subject:  subject,
		Body:     body,
		HTMLBody: htmlBody,
	}

	var id string
	err = sc.WithClient(ctx, func(c *gmail.Client) error {
		var serr error
		id, serr = c.SendEmail(ctx, msg)
		return serr
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send email: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Email sent successfully (message id: %s)", id)), nil
}

// parseAddressList accepts a string or array of strings. Optional fields
// return nil when absent.
func parseAddressList(param interface{}, name string, required bool) ([]string, error) {
	if param == nil {
		if required {
			return nil, fmt.Errorf("%s is required", name)
		}
		return nil, nil
	}

	switch v := param.(type) {
	case string:
		if v == "" {
			if required {
				return nil, fmt.Errorf("%s is required", name)
			}
			return nil, nil
		}
		return []string{v}, nil
	case []interface{}:
		addrs := make([]string, 0, len(v))
		for i, item := range v {
			addr, ok := item.(string)
			if !ok || addr == "" {
				return nil, fmt.Errorf("%s[%d] must be a non-empty string", name, i)
			}
			addrs = append(addrs, addr)
		}
		if required && len(addrs) == 0 {
			return nil, fmt.Errorf("%s is required", name)
		}
		return addrs, nil
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", name)
	}
}
