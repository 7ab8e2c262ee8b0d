package posts

import "strings"

// Category labels produced by the default classifier.
const (
	CategoryAll          = "All"
	CategoryGeneral      = "General"
	CategoryArchitecture = "Architecture"
	CategoryDatabase     = "Database"
	CategoryAPI          = "API"
	CategoryCaching      = "Caching"
	CategoryDevOps       = "DevOps"
	CategorySecurity     = "Security"
	CategoryPerformance  = "Performance"
	CategoryNetworking   = "Networking"
	CategoryCareer       = "Career"
	CategoryCaseStudy    = "Case Study"
)

// Rule assigns Label to titles containing any of Keywords.
// Keywords are matched as lowercase substrings.
type Rule struct {
	Label    string
	Keywords []string
}

// Matches reports whether the lowercased title contains one of the rule's keywords.
func (r Rule) Matches(lowerTitle string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lowerTitle, kw) {
			return true
		}
	}
	return false
}

// DefaultRules is the category priority list. Order matters: a title such
// as "Database API Design" matches both Database and API and must land in
// Database.
var DefaultRules = []Rule{
	{Label: CategoryArchitecture, Keywords: []string{"microservice", "architecture"}},
	{Label: CategoryDatabase, Keywords: []string{"database", "sql"}},
	{Label: CategoryAPI, Keywords: []string{"api", "rest", "graphql"}},
	{Label: CategoryCaching, Keywords: []string{"cache", "redis"}},
	{Label: CategoryDevOps, Keywords: []string{"kubernetes", "docker", "infrastructure"}},
	{Label: CategorySecurity, Keywords: []string{"auth", "security", "jwt"}},
	{Label: CategoryPerformance, Keywords: []string{"scale", "scaling", "performance"}},
	{Label: CategoryNetworking, Keywords: []string{"network", "tcp", "http"}},
	{Label: CategoryCareer, Keywords: []string{"career", "engineer", "resume"}},
	{Label: CategoryCaseStudy, Keywords: []string{"netflix", "video"}},
}

// Classifier maps titles to categories by walking an ordered rule list.
type Classifier struct {
	rules    []Rule
	fallback string
}

// NewClassifier returns a classifier over rules. Titles that match no rule
// get fallback.
func NewClassifier(rules []Rule, fallback string) *Classifier {
	lowered := make([]Rule, 0, len(rules))
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kws = append(kws, strings.ToLower(kw))
		}
		lowered = append(lowered, Rule{Label: r.Label, Keywords: kws})
	}
	return &Classifier{rules: lowered, fallback: fallback}
}

var defaultClassifier = NewClassifier(DefaultRules, CategoryGeneral)

// Classify returns the first matching category for title, or the fallback.
func (c *Classifier) Classify(title string) string {
	lower := strings.ToLower(title)
	for _, r := range c.rules {
		if r.Matches(lower) {
			return r.Label
		}
	}
	return c.fallback
}

// Labels returns every label the classifier can produce, in priority order,
// followed by the fallback.
func (c *Classifier) Labels() []string {
	labels := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		labels = append(labels, r.Label)
	}
	return append(labels, c.fallback)
}

// Classify categorizes title with DefaultRules.
func Classify(title string) string {
	return defaultClassifier.Classify(title)
}
