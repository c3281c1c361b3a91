package gmail

import (
	gmail "google.golang.org/api/gmail/v1"
)

// Well-known Gmail system label ids.
const (
	labelInbox   = "INBOX"
	labelUnread  = "UNREAD"
	labelSpam    = "SPAM"
	labelStarred = "STARRED"
)

// MessageInfo summarizes a Gmail message for list output. Field names match
// the JSON shape served by the REST API and MCP tools.
type MessageInfo struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Subject  string   `json:"subject"`
	Date     string   `json:"date"`
	Snippet  string   `json:"snippet"`
	LabelIDs []string `json:"labelIds,omitempty"`
}

// LabelInfo describes a Gmail label.
type LabelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// EmailMessage represents an email to be sent. When HTMLBody is set the
// message is built as multipart/alternative with Body as the plain-text
// fallback.
type EmailMessage struct {
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	Body     string
	HTMLBody string
}

// HeaderValue returns the value of a named header from a message payload,
// or the empty string if the header is absent.
func HeaderValue(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// ExtractMessageInfo builds a MessageInfo from a full-format message.
func ExtractMessageInfo(msg *gmail.Message) *MessageInfo {
	return &MessageInfo{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     HeaderValue(msg, "From"),
		To:       HeaderValue(msg, "To"),
		Subject:  HeaderValue(msg, "Subject"),
		Date:     HeaderValue(msg, "Date"),
		Snippet:  msg.Snippet,
		LabelIDs: msg.LabelIds,
	}
}
