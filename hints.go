package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DomainHints is an optional operator-maintained file of phrase overrides
// applied after classification. A phrase match pins the record's domain or
// adds a keyword, deterministically, regardless of what the classifier said.
type DomainHints struct {
	Domains  []DomainHint  `yaml:"domains"`
	Keywords []KeywordHint `yaml:"keywords"`
}

type DomainHint struct {
	Phrase string `yaml:"phrase"`
	Domain string `yaml:"domain"`
}

type KeywordHint struct {
	Phrase  string `yaml:"phrase"`
	Keyword string `yaml:"keyword"`
}

func LoadDomainHints(path string) (*DomainHints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domain hints: %w", err)
	}
	var h DomainHints
	if err := yaml.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parse domain hints yaml: %w", err)
	}
	for _, d := range h.Domains {
		if !ValidDomain(strings.TrimSpace(d.Domain)) {
			return nil, fmt.Errorf("domain hint '%s' names unknown domain '%s'", d.Phrase, d.Domain)
		}
	}
	return &h, nil
}

// Apply mutates rec in place. The first matching domain hint wins; keyword
// hints append without duplicating.
func (h *DomainHints) Apply(rec *ClassifiedRecord) {
	desc := normalizePhrase(rec.Description + " " + rec.FeatureName)

	for _, d := range h.Domains {
		phrase := normalizePhrase(d.Phrase)
		if phrase != "" && strings.Contains(desc, phrase) {
			rec.Domain = strings.TrimSpace(d.Domain)
			break
		}
	}

	for _, k := range h.Keywords {
		phrase := normalizePhrase(k.Phrase)
		if phrase == "" || !strings.Contains(desc, phrase) {
			continue
		}
		keyword := strings.TrimSpace(k.Keyword)
		if keyword != "" && !containsFold(rec.Keywords, keyword) {
			rec.Keywords = append(rec.Keywords, keyword)
		}
	}
}

func normalizePhrase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsFold(items []string, s string) bool {
	for _, item := range items {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
