package schema

import (
	"regexp"
	"strings"
	"unicode"
)

// KindRule classifies a field's kind from its label text and glyph shape.
type KindRule struct {
	Name           string
	Kind           FieldKind
	Keywords       []string
	Glyphs         []string
	Patterns       []*regexp.Regexp
	ValidationHint string
	Priority       int
}

var defaultKindRules = []KindRule{
	{
		Name: "checkbox_glyphs",
		Kind: KindCheckbox,
		Glyphs: []string{
			"[ ]", "[x]", "[X]", "( )", "☐", "☑", "☒", "□", "■",
		},
		Priority: 1,
	},
	{
		Name: "checkbox_keywords",
		Kind: KindCheckbox,
		Keywords: []string{
			"check if", "check all", "tick", "yes/no", "select one",
			"i agree", "i accept", "opt in", "opt out",
		},
		Priority: 2,
	},
	{
		Name: "signature_keywords",
		Kind: KindSignature,
		Keywords: []string{
			"signature", "sign here", "signed", "initials",
		},
		Priority: 1,
	},
	{
		Name: "date_keywords",
		Kind: KindDate,
		Keywords: []string{
			"date", "dob", "date of birth", "birthdate", "expires",
			"expiration", "valid until", "issued on",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(mm/dd/yyyy|dd/mm/yyyy|yyyy-mm-dd)\b`),
		},
		Priority: 2,
	},
	{
		Name:           "email_hint",
		Kind:           KindText,
		Keywords:       []string{"email", "e-mail"},
		ValidationHint: "email",
		Priority:       3,
	},
	{
		Name:           "phone_hint",
		Kind:           KindText,
		Keywords:       []string{"phone", "telephone", "mobile", "cell", "fax"},
		ValidationHint: "phone",
		Priority:       3,
	},
}

// classifyKind resolves the field kind and validation hint for a label paired
// with the glyph text found in its answer region. Rules are checked in
// priority order; nothing matching means plain text.
func classifyKind(label, glyph string) (FieldKind, string) {
	lower := strings.ToLower(label)

	best := KindRule{Priority: 1 << 30}
	matched := false
	for _, rule := range defaultKindRules {
		if rule.Priority >= best.Priority {
			continue
		}
		if ruleMatches(rule, lower, glyph) {
			best = rule
			matched = true
		}
	}
	if !matched {
		return KindText, ""
	}
	return best.Kind, best.ValidationHint
}

func ruleMatches(rule KindRule, lowerLabel, glyph string) bool {
	for _, g := range rule.Glyphs {
		if strings.Contains(glyph, g) || strings.Contains(lowerLabel, strings.ToLower(g)) {
			return true
		}
	}
	for _, kw := range rule.Keywords {
		if strings.Contains(lowerLabel, kw) {
			return true
		}
	}
	for _, p := range rule.Patterns {
		if p.MatchString(lowerLabel) {
			return true
		}
	}
	return false
}

// looksLikeLabel reports whether a span of text reads as a field label rather
// than body text: it ends with a colon, carries a fill-in run of underscores
// or dots, or matches a known field keyword while staying short.
func looksLikeLabel(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if !containsLetter(trimmed) {
		// A bare fill-in run belongs to the label before it.
		return false
	}
	if strings.HasSuffix(trimmed, ":") {
		return true
	}
	if strings.Contains(trimmed, "____") || strings.Contains(trimmed, "....") {
		return true
	}
	if len(strings.Fields(trimmed)) > 6 {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, rule := range defaultKindRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return fieldLabelKeywords.MatchString(lower)
}

var fieldLabelKeywords = regexp.MustCompile(
	`\b(name|address|city|state|zip|postal|country|ssn|ein|email|phone|occupation|employer|company|account)\b`)

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// stripFillIn removes trailing colons and fill-in runs from a label.
func stripFillIn(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimRight(s, "_.")
	s = strings.TrimSpace(strings.TrimSuffix(s, ":"))
	return s
}
