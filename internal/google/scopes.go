package google

import (
	gmail "google.golang.org/api/gmail/v1"
)

// Scopes are the Gmail OAuth scopes requested during authorization.
//
// The scopes provide access to:
//   - reading messages and labels
//   - sending mail
//   - modifying messages (labels, read state, spam, trash, star)
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	gmail.GmailModifyScope,
}
