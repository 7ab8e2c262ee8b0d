// Package google provides OAuth2 configuration and the interactive
// refresh-token flow for the Gmail API.
//
// The sync command authenticates with a long-lived refresh token supplied
// through configuration. The auth command obtains that token once by running
// AuthFlow, which opens a local callback listener and exchanges the
// authorization code the browser hands back.
package google
