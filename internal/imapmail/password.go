package imapmail

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the app's secrets in the OS keychain.
const KeyringService = "inboxshelf"

// ErrNoPassword is returned when neither configuration nor the keyring
// holds a password.
var ErrNoPassword = errors.New("IMAP password not found (set IMAP_PASSWORD or store it in the keyring)")

// KeyringAccount names the keyring entry for a mailbox account.
func KeyringAccount(username, addr string) string {
	return fmt.Sprintf("imap:%s@%s", username, addr)
}

// LookupPassword returns the keyring password for the account.
func LookupPassword(username, addr string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", ErrNoPassword
	}
	pw, err := keyring.Get(KeyringService, KeyringAccount(username, addr))
	if err != nil || strings.TrimSpace(pw) == "" {
		return "", ErrNoPassword
	}
	return pw, nil
}

// StorePassword saves the account password in the keyring.
func StorePassword(username, addr, password string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("imap username is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	if err := keyring.Set(KeyringService, KeyringAccount(username, addr), password); err != nil {
		return fmt.Errorf("failed to store password in keyring: %w", err)
	}
	return nil
}

// DeletePassword removes the account password from the keyring.
func DeletePassword(username, addr string) error {
	if err := keyring.Delete(KeyringService, KeyringAccount(username, addr)); err != nil {
		return fmt.Errorf("failed to delete password from keyring: %w", err)
	}
	return nil
}
