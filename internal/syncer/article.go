package syncer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrInvalidMessage marks a message that cannot become an article.
var ErrInvalidMessage = errors.New("invalid message")

// Validation bounds for derived articles.
const (
	MinHTMLLength = 100
	MinYear       = 2020
	MaxYear       = 2030
)

// Article is the library entry derived from a Message.
type Article struct {
	MessageID string
	Subject   string
	Title     string
	Date      time.Time
	Year      int
	Filename  string
	HTML      string
}

var (
	dateSuffixRe = regexp.MustCompile(`(?i)\s*[-–—]\s*(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2}(?:,\s*\d{4})?$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// invalidFilenameChars are removed from titles before they become filenames.
const invalidFilenameChars = `<>:"/\|?*`

// Parser turns messages into articles.
type Parser struct {
	prefixRe *regexp.Regexp
}

// NewParser returns a Parser that strips subjectPrefix (case-insensitive,
// optionally followed by a colon) from the start of subjects.
func NewParser(subjectPrefix string) *Parser {
	p := &Parser{}
	if subjectPrefix = strings.TrimSpace(subjectPrefix); subjectPrefix != "" {
		p.prefixRe = regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(subjectPrefix) + `:?\s*`)
	}
	return p
}

// Parse derives the article for msg. The result still needs Validate.
func (p *Parser) Parse(msg Message) Article {
	title := p.ExtractTitle(msg.Subject)
	return Article{
		MessageID: msg.ID,
		Subject:   msg.Subject,
		Title:     title,
		Date:      msg.Date,
		Year:      msg.Date.Year(),
		Filename:  GenerateFilename(title, msg.Date),
		HTML:      CleanHTML(msg.HTML),
	}
}

// ExtractTitle removes the sender prefix and a trailing " - Aug 14[, 2024]"
// date from a subject line.
func (p *Parser) ExtractTitle(subject string) string {
	title := subject
	if p.prefixRe != nil {
		title = p.prefixRe.ReplaceAllString(title, "")
	}
	title = dateSuffixRe.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

// GenerateFilename returns "YYMMDD Title.html".
func GenerateFilename(title string, date time.Time) string {
	clean := SanitizeFilename(title)
	if clean == "" || date.IsZero() {
		return ""
	}
	return date.Format("060102") + " " + clean + ".html"
}

// SanitizeFilename drops characters that are not allowed in filenames and
// normalizes whitespace.
func SanitizeFilename(title string) string {
	title = strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFilenameChars, r) {
			return -1
		}
		return r
	}, title)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(title, " "))
}

// CleanHTML strips tracking pixels, styles, scripts, unsubscribe blocks and
// footers from an email body and returns its main content: the first
// div[dir=auto], else the body, else the input unchanged.
func CleanHTML(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	doc.Find(`img[src*="track"]`).Remove()
	doc.Find(`img[width="1"][height="1"]`).Remove()
	doc.Find(`img[style*="display:none"]`).Remove()
	doc.Find("style, script").Remove()
	doc.Find(`[class*="unsubscribe"], [class*="footer"]`).Remove()

	if main := doc.Find(`div[dir="auto"]`).First(); main.Length() > 0 {
		if out, err := main.Html(); err == nil && out != "" {
			return out
		}
		return html
	}
	if out, err := doc.Find("body").Html(); err == nil && out != "" {
		return out
	}
	return html
}

// Validate reports every reason the article cannot be saved. The error
// wraps ErrInvalidMessage.
func (a Article) Validate() error {
	var problems []error
	if a.Title == "" {
		problems = append(problems, errors.New("missing title"))
	}
	if len(a.HTML) < MinHTMLLength {
		problems = append(problems, fmt.Errorf("html content too short (%d < %d)", len(a.HTML), MinHTMLLength))
	}
	if a.Filename == "" {
		problems = append(problems, errors.New("could not generate filename"))
	}
	if a.Year < MinYear || a.Year > MaxYear {
		problems = append(problems, fmt.Errorf("year %d outside %d-%d", a.Year, MinYear, MaxYear))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidMessage, errors.Join(problems...))
}
