package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Mail backends.
const (
	BackendGmail = "gmail"
	BackendIMAP  = "imap"
)

// Defaults.
const (
	DefaultBlogsPath     = "./blogs"
	DefaultSubjectPrefix = "ByteByteGo"
	DefaultGmailQuery    = "from:bytebytego OR from:substack.com"
	DefaultGmailLabel    = "ByteByteGo/Processed"
	DefaultMaxResults    = 50
	DefaultIMAPMailbox   = "INBOX"
	DefaultIMAPSenders   = "bytebytego,substack.com"
)

// ErrMissingCredentials is returned when the selected backend lacks the
// credentials it needs to connect.
var ErrMissingCredentials = errors.New("missing mail credentials")

// Config holds the settings of a sync or serve run.
type Config struct {
	// Backend selects the mailbox implementation: gmail or imap.
	Backend        string
	BlogsPath      string
	DryRun         bool
	SubjectPrefix  string
	ImageRulesFile string

	Gmail GmailConfig
	IMAP  IMAPConfig
}

// GmailConfig holds the Gmail API settings.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Query        string
	Label        string
	MaxResults   int
}

// IMAPConfig holds the IMAP settings.
type IMAPConfig struct {
	Addr     string
	Username string
	// Password may be empty; see ResolveIMAPPassword.
	Password   string
	Mailbox    string
	Senders    []string
	MaxResults int
	Insecure   bool
}

// Load reads the .env file at path when it exists and returns the
// configuration from the environment. An empty path means ".env".
func Load(path string) (Config, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return FromEnv(), nil
}

// FromEnv returns the configuration from environment variables with
// defaults applied.
func FromEnv() Config {
	maxResults := getEnvIntOrDefault("GMAIL_MAX_RESULTS", DefaultMaxResults)
	return Config{
		Backend:        strings.ToLower(getEnvOrDefault("MAIL_BACKEND", BackendGmail)),
		BlogsPath:      getEnvOrDefault("BLOGS_BASE_PATH", DefaultBlogsPath),
		DryRun:         getEnvBoolOrDefault("DRY_RUN", false),
		SubjectPrefix:  getEnvOrDefault("SUBJECT_PREFIX", DefaultSubjectPrefix),
		ImageRulesFile: os.Getenv("IMAGE_RULES_FILE"),
		Gmail: GmailConfig{
			ClientID:     os.Getenv("GMAIL_CLIENT_ID"),
			ClientSecret: os.Getenv("GMAIL_CLIENT_SECRET"),
			RefreshToken: os.Getenv("GMAIL_REFRESH_TOKEN"),
			Query:        getEnvOrDefault("GMAIL_SEARCH_QUERY", DefaultGmailQuery),
			Label:        getEnvOrDefault("GMAIL_LABEL_PROCESSED", DefaultGmailLabel),
			MaxResults:   maxResults,
		},
		IMAP: IMAPConfig{
			Addr:       os.Getenv("IMAP_ADDR"),
			Username:   os.Getenv("IMAP_USERNAME"),
			Password:   os.Getenv("IMAP_PASSWORD"),
			Mailbox:    getEnvOrDefault("IMAP_MAILBOX", DefaultIMAPMailbox),
			Senders:    splitList(getEnvOrDefault("IMAP_SENDERS", DefaultIMAPSenders)),
			MaxResults: getEnvIntOrDefault("IMAP_MAX_RESULTS", maxResults),
			Insecure:   getEnvBoolOrDefault("IMAP_INSECURE", false),
		},
	}
}

// Validate checks settings that do not depend on credentials and returns
// every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.Backend != BackendGmail && c.Backend != BackendIMAP {
		errs = append(errs, fmt.Errorf("invalid mail backend %q, must be one of: gmail, imap", c.Backend))
	}
	if strings.TrimSpace(c.BlogsPath) == "" {
		errs = append(errs, errors.New("blogs path must not be empty"))
	}
	if c.Gmail.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("GMAIL_MAX_RESULTS must be positive, got %d", c.Gmail.MaxResults))
	}
	if c.IMAP.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("IMAP_MAX_RESULTS must be positive, got %d", c.IMAP.MaxResults))
	}
	return errors.Join(errs...)
}

// ValidateCredentials reports which credentials the selected backend is
// missing. The returned error wraps ErrMissingCredentials.
func (c *Config) ValidateCredentials() error {
	var missing []string
	switch c.Backend {
	case BackendGmail:
		missing = appendIfEmpty(missing, "GMAIL_CLIENT_ID", c.Gmail.ClientID)
		missing = appendIfEmpty(missing, "GMAIL_CLIENT_SECRET", c.Gmail.ClientSecret)
		missing = appendIfEmpty(missing, "GMAIL_REFRESH_TOKEN", c.Gmail.RefreshToken)
	case BackendIMAP:
		missing = appendIfEmpty(missing, "IMAP_ADDR", c.IMAP.Addr)
		missing = appendIfEmpty(missing, "IMAP_USERNAME", c.IMAP.Username)
		missing = appendIfEmpty(missing, "IMAP_PASSWORD", c.IMAP.Password)
	default:
		return fmt.Errorf("invalid mail backend %q", c.Backend)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// ResolveIMAPPassword fills an empty IMAP password using lookup, which is
// typically imapmail.LookupPassword. A lookup failure leaves it empty.
func (c *Config) ResolveIMAPPassword(lookup func(username, addr string) (string, error)) {
	if c.IMAP.Password != "" || lookup == nil || c.IMAP.Username == "" {
		return
	}
	if pw, err := lookup(c.IMAP.Username, c.IMAP.Addr); err == nil {
		c.IMAP.Password = pw
	}
}

func appendIfEmpty(missing []string, key, value string) []string {
	if strings.TrimSpace(value) == "" {
		return append(missing, key)
	}
	return missing
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}
