// Package useragent classifies raw user-agent strings into the device type,
// browser and operating system labels stored on click events.
package useragent

import (
	_ "embed"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// Device type labels
const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
)

// Unknown is the fallback label for browser and operating system.
const Unknown = "Unknown"

// Classification is the derived client triple for one user-agent string.
type Classification struct {
	DeviceType string
	Browser    string
	OS         string
}

//go:embed rules.yml
var rulesYAML []byte

// tabletPattern needs a negative lookahead (android UAs that do not also
// say "mobile" are tablets), which the standard regexp package cannot
// express.
const tabletPattern = `(?i)(tablet|ipad|playbook|silk)|(android(?!.*mobile))`

type browserRule struct {
	Name        string        `yaml:"name"`
	Tokens      []string      `yaml:"tokens"`
	Refinements []browserRule `yaml:"refinements"`
}

type osRule struct {
	Name   string   `yaml:"name"`
	Tokens []string `yaml:"tokens"`
}

type ruleSet struct {
	Browsers         []browserRule `yaml:"browsers"`
	OperatingSystems []osRule      `yaml:"operating_systems"`
	MobileTokens     []string      `yaml:"mobile_tokens"`
}

var (
	loadOnce    sync.Once
	rules       ruleSet
	tabletRegex *pcre.Regexp
)

func loadRules() {
	loadOnce.Do(func() {
		if err := yaml.Unmarshal(rulesYAML, &rules); err != nil {
			panic("useragent: invalid embedded rules: " + err.Error())
		}
		tabletRegex = pcre.MustCompile(tabletPattern)
	})
}

// Classify maps a raw user-agent string to its classification triple.
// Pure and total: it never fails and the same input always yields the same
// output.
func Classify(userAgent string) Classification {
	loadRules()

	return Classification{
		DeviceType: classifyDevice(userAgent),
		Browser:    classifyBrowser(userAgent),
		OS:         classifyOS(userAgent),
	}
}

// classifyDevice checks tablet indicators before mobile ones: tablet UAs
// routinely carry mobile tokens as well.
func classifyDevice(userAgent string) string {
	if tabletRegex.MatchString(userAgent) {
		return DeviceTablet
	}
	for _, token := range rules.MobileTokens {
		if strings.Contains(userAgent, token) {
			return DeviceMobile
		}
	}
	return DeviceDesktop
}

func classifyBrowser(userAgent string) string {
	for _, rule := range rules.Browsers {
		if !containsAny(userAgent, rule.Tokens) {
			continue
		}
		for _, refinement := range rule.Refinements {
			if containsAny(userAgent, refinement.Tokens) {
				return refinement.Name
			}
		}
		return rule.Name
	}
	return Unknown
}

func classifyOS(userAgent string) string {
	lower := strings.ToLower(userAgent)
	for _, rule := range rules.OperatingSystems {
		if containsAny(lower, rule.Tokens) {
			return rule.Name
		}
	}
	return Unknown
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
