package google

import (
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultRedirectURL is the loopback address the auth flow listens on.
const DefaultRedirectURL = "http://localhost:3000/oauth2callback"

// GmailScopes are the scopes sync needs: reading messages, and creating and
// applying the processed label.
var GmailScopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailModifyScope,
	gmail.GmailLabelsScope,
}
