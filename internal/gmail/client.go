package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"gmailbridge/internal/instrumentation"
)

// maxPageSize is the Gmail API list page cap.
const maxPageSize = 100

// Client wraps the Gmail Users service.
type Client struct {
	svc     *gmail.UsersService
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewClient creates a Gmail client over an authorized HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client, logger *slog.Logger, metrics *instrumentation.Metrics) (*Client, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Client{svc: svc.Users, logger: logger, metrics: metrics}, nil
}

// finish ends the operation span and records the outcome of a Gmail API
// operation.
func (c *Client) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	span.End()
	c.metrics.RecordGmailOperation(ctx, op, status, time.Since(start))
}

// ListMessages lists messages matching the query and fetches each in full
// format so headers can be extracted. It paginates until maxResults messages
// are collected or the result set is exhausted.
func (c *Client) ListMessages(ctx context.Context, query string, maxResults int64) (infos []*MessageInfo, err error) {
	start := time.Now()
	ctx, span := instrumentation.StartGmailSpan(ctx, "list")
	defer func() { c.finish(ctx, span, "list", start, err) }()

	if maxResults <= 0 {
		maxResults = 10
	}

	var refs []*gmail.Message
	pageToken := ""
	for {
		remaining := maxResults - int64(len(refs))
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		req := c.svc.Messages.List("me").Q(query).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, lerr := req.Do()
		if lerr != nil {
			err = fmt.Errorf("failed to list messages: %w", lerr)
			return nil, err
		}

		refs = append(refs, res.Messages...)
		if res.NextPageToken == "" || int64(len(refs)) >= maxResults {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(refs)) > maxResults {
		refs = refs[:maxResults]
	}

	infos = make([]*MessageInfo, 0, len(refs))
	for _, ref := range refs {
		msg, gerr := c.svc.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if gerr != nil {
			err = fmt.Errorf("failed to get message %s: %w", ref.Id, gerr)
			return nil, err
		}
		infos = append(infos, ExtractMessageInfo(msg))
	}
	return infos, nil
}

// SendEmail sends an email and returns the sent message id.
func (c *Client) SendEmail(ctx context.Context, msg *EmailMessage) (id string, err error) {
	start := time.Now()
	ctx, span := instrumentation.StartGmailSpan(ctx, "send")
	defer func() { c.finish(ctx, span, "send", start, err) }()

	raw, err := buildMIME(msg)
	if err != nil {
		return "", err
	}

	sent, serr := c.svc.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}).Context(ctx).Do()
	if serr != nil {
		err = fmt.Errorf("failed to send email: %w", serr)
		return "", err
	}
	return sent.Id, nil
}

// ModifyLabels adds and removes labels on a message.
func (c *Client) ModifyLabels(ctx context.Context, id string, add, remove []string) (err error) {
	start := time.Now()
	ctx, span := instrumentation.StartGmailSpan(ctx, "modify_labels",
		attribute.String(instrumentation.SpanAttrMessageID, id))
	defer func() { c.finish(ctx, span, "modify_labels", start, err) }()

	if id == "" {
		err = fmt.Errorf("message id is required")
		return err
	}
	if len(add) == 0 && len(remove) == 0 {
		err = fmt.Errorf("at least one label to add or remove is required")
		return err
	}

	_, merr := c.svc.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Context(ctx).Do()
	if merr != nil {
		err = fmt.Errorf("failed to modify labels on message %s: %w", id, merr)
	}
	return err
}

// MarkAsRead removes the UNREAD label from a message.
func (c *Client) MarkAsRead(ctx context.Context, id string) error {
	return c.ModifyLabels(ctx, id, nil, []string{labelUnread})
}

// MarkAsUnread adds the UNREAD label to a message.
func (c *Client) MarkAsUnread(ctx context.Context, id string) error {
	return c.ModifyLabels(ctx, id, []string{labelUnread}, nil)
}

// MarkAsSpam marks a message as spam by adding the SPAM label and removing
// the INBOX label.
func (c *Client) MarkAsSpam(ctx context.Context, id string) error {
	return c.ModifyLabels(ctx, id, []string{labelSpam}, []string{labelInbox})
}

// AddStar adds the STARRED label to a message.
func (c *Client) AddStar(ctx context.Context, id string) error {
	return c.ModifyLabels(ctx, id, []string{labelStarred}, nil)
}

// MoveToTrash moves a message to the trash.
func (c *Client) MoveToTrash(ctx context.Context, id string) (err error) {
	start := time.Now()
	ctx, span := instrumentation.StartGmailSpan(ctx, "trash",
		attribute.String(instrumentation.SpanAttrMessageID, id))
	defer func() { c.finish(ctx, span, "trash", start, err) }()

	if id == "" {
		err = fmt.Errorf("message id is required")
		return err
	}
	_, terr := c.svc.Messages.Trash("me", id).Context(ctx).Do()
	if terr != nil {
		err = fmt.Errorf("failed to trash message %s: %w", id, terr)
	}
	return err
}

// ForEach applies fn to each message id and returns the number of messages
// for which fn succeeded. Individual failures are logged and collected; the
// remaining ids are still processed.
func (c *Client) ForEach(ctx context.Context, ids []string, fn func(ctx context.Context, id string) error) (int, error) {
	succeeded := 0
	var errs []string
	for _, id := range ids {
		if err := fn(ctx, id); err != nil {
			c.logger.Warn("bulk operation failed for message", "message_id", id, "error", err.Error())
			errs = append(errs, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		succeeded++
	}
	if len(errs) > 0 {
		return succeeded, fmt.Errorf("%d of %d messages failed: %s", len(errs), len(ids), strings.Join(errs, "; "))
	}
	return succeeded, nil
}

// ListLabels returns all labels in the mailbox.
func (c *Client) ListLabels(ctx context.Context) (labels []*LabelInfo, err error) {
	start := time.Now()
	ctx, span := instrumentation.StartGmailSpan(ctx, "list_labels")
	defer func() { c.finish(ctx, span, "list_labels", start, err) }()

	res, lerr := c.svc.Labels.List("me").Context(ctx).Do()
	if lerr != nil {
		err = fmt.Errorf("failed to list labels: %w", lerr)
		return nil, err
	}

	labels = make([]*LabelInfo, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, &LabelInfo{ID: l.Id, Name: l.Name, Type: l.Type})
	}
	return labels, nil
}

// encodeRFC2047 encodes a header value per RFC 2047 when it contains
// non-ASCII characters.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// buildMIME builds the RFC 2822 message text. A plain-text message is a
// single part; when HTMLBody is set the message is multipart/alternative
// with the plain body first so clients prefer the HTML part.
func buildMIME(msg *EmailMessage) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}
	if msg.Subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if msg.Body == "" && msg.HTMLBody == "" {
		return "", fmt.Errorf("body is required")
	}

	var b strings.Builder

	b.WriteString("To: ")
	b.WriteString(strings.Join(msg.To, ", "))
	b.WriteString("\r\n")

	if len(msg.Cc) > 0 {
		b.WriteString("Cc: ")
		b.WriteString(strings.Join(msg.Cc, ", "))
		b.WriteString("\r\n")
	}
	if len(msg.Bcc) > 0 {
		b.WriteString("Bcc: ")
		b.WriteString(strings.Join(msg.Bcc, ", "))
		b.WriteString("\r\n")
	}

	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(msg.Subject))
	b.WriteString("\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	if msg.HTMLBody == "" {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		b.WriteString("\r\n")
		b.WriteString(msg.Body)
		return b.String(), nil
	}

	boundary := "part-" + uuid.NewString()
	b.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", boundary))
	b.WriteString("\r\n")

	if msg.Body != "" {
		b.WriteString("--" + boundary + "\r\n")
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		b.WriteString("\r\n")
		b.WriteString(msg.Body)
		b.WriteString("\r\n")
	}

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTMLBody)
	b.WriteString("\r\n")
	b.WriteString("--" + boundary + "--\r\n")

	return b.String(), nil
}
