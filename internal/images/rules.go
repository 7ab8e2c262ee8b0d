package images

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultRulesYAML []byte

// Rules configures which <img> sources count as article content.
type Rules struct {
	Exclusions     []string `yaml:"exclusions"`
	ProxyHosts     []string `yaml:"proxy_hosts"`
	CDNHosts       []string `yaml:"cdn_hosts"`
	ContentMarkers []string `yaml:"content_markers"`

	IconPayloadMarker     string `yaml:"icon_payload_marker"`
	MinIconSize           int    `yaml:"min_icon_size"`
	MinContentPayloadSize int    `yaml:"min_content_payload_size"`
	MinPayloadSize        int    `yaml:"min_payload_size"`
}

// DefaultRules returns the built-in heuristics.
func DefaultRules() Rules {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded image rules are invalid: %v", err))
	}
	return rules
}

// ParseRules decodes YAML rules. Fields the document leaves out keep their
// built-in defaults when parsed through LoadRules.
func ParseRules(data []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse image rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// LoadRules reads rules from path and overlays them on DefaultRules.
// An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read image rules %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse image rules %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid image rules %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks the thresholds are usable.
func (r Rules) Validate() error {
	if r.MinIconSize < 0 || r.MinPayloadSize < 0 || r.MinContentPayloadSize < 0 {
		return fmt.Errorf("image size thresholds must not be negative")
	}
	if r.MinContentPayloadSize < r.MinPayloadSize {
		return fmt.Errorf("min_content_payload_size (%d) must be >= min_payload_size (%d)",
			r.MinContentPayloadSize, r.MinPayloadSize)
	}
	return nil
}

// excluded reports whether src contains any exclusion keyword.
func (r Rules) excluded(src string) bool {
	return containsAny(src, r.Exclusions)
}

// unwrap returns the original URL of a proxy-wrapped source.
func (r Rules) unwrap(src string) string {
	if !containsAny(src, r.ProxyHosts) {
		return src
	}
	if i := strings.LastIndex(src, "#"); i >= 0 {
		return src[i+1:]
	}
	return src
}

// accepts reports whether src qualifies as a content image. minPayload is
// the size an embedded data: image must exceed.
func (r Rules) accepts(src string, minPayload int) bool {
	switch {
	case strings.HasPrefix(src, "http"):
		return containsAny(src, r.CDNHosts) && containsAny(src, r.ContentMarkers)
	case strings.HasPrefix(src, "data:image/"):
		if r.IconPayloadMarker != "" && strings.Contains(src, r.IconPayloadMarker) && len(src) < r.MinIconSize {
			return false
		}
		return len(src) > minPayload
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
