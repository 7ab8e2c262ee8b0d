package posts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Database API Design", CategoryDatabase},
		{"From Monolith to Microservices - Key Transition Patterns", CategoryArchitecture},
		{"Unlocking the Power of SQL Queries for Improved Performance", CategoryDatabase},
		{"A Crash Course on REST APIs", CategoryAPI},
		{"A Crash Course in GraphQL", CategoryAPI},
		{"A Crash Course in Redis", CategoryCaching},
		{"Redis Can Do More Than Caching", CategoryCaching},
		{"Distributed Caching - The Secret to High-Performance Applications", CategoryPerformance},
		{"A Crash Course in Docker", CategoryDevOps},
		{"Mastering Modern Authentication - Cookies, Sessions, JWT, and PASETO", CategorySecurity},
		{"A Brief History of Scaling Netflix", CategoryPerformance},
		{"Everything You Always Wanted to Know About TCP But Too Afraid to Ask", CategoryNetworking},
		{"The Top 3 Resume Mistakes Costing You the Job", CategoryCareer},
		{"Netflix - What Happens When You Press Play", CategoryCaseStudy},
		{"How Video Recommendations Work - Part 1", CategoryCaseStudy},
		{"Tidying Code", CategoryGeneral},
		{"", CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.title))
		})
	}
}

func TestClassify_PriorityOverScore(t *testing.T) {
	// Three API keywords lose against a single Database keyword.
	assert.Equal(t, CategoryDatabase, Classify("REST API GraphQL over SQL"))
	// "engineer" is Career, but Architecture comes first.
	assert.Equal(t, CategoryArchitecture, Classify("Architecture for Engineers"))
}

func TestNewClassifier_CustomRules(t *testing.T) {
	c := NewClassifier([]Rule{
		{Label: "Go", Keywords: []string{"GOLANG", "goroutine"}},
		{Label: "Rust", Keywords: []string{"rust"}},
	}, "Other")

	assert.Equal(t, "Go", c.Classify("Goroutine leaks"))
	assert.Equal(t, "Go", c.Classify("golang and rust"))
	assert.Equal(t, "Rust", c.Classify("Rust ownership"))
	assert.Equal(t, "Other", c.Classify("Python"))
	assert.Equal(t, []string{"Go", "Rust", "Other"}, c.Labels())
}

func TestDefaultClassifierLabels(t *testing.T) {
	labels := defaultClassifier.Labels()
	assert.Len(t, labels, 11)
	assert.Equal(t, CategoryArchitecture, labels[0])
	assert.Equal(t, CategoryCaseStudy, labels[9])
	assert.Equal(t, CategoryGeneral, labels[10])
}
