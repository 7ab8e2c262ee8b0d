// Package imapmail reads newsletter messages from an IMAP mailbox.
//
// Unprocessed messages are those without the processed keyword flag; marking
// a message processed stores that flag. Message bodies are fetched with
// BODY.PEEK[] so reading never sets \Seen. The account password can live in
// the OS keyring instead of the environment.
package imapmail
