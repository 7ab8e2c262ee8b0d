package instrumentation

import "strings"

// ExtractUserDomain returns the domain of an email-like account name, or
// "unknown". Logs and labels use it in place of the full address.
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
func ExtractUserDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "unknown"
	}
	return email[at+1:]
}
