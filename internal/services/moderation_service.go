package services

import (
	"fmt"
	"regexp"
	"strings"
)

// SpamWords are terms that mark a free-text field as suspicious.
var SpamWords = []string{
	"spam", "scam", "scammer", "phishing", "malware",
	"casino", "viagra", "crypto giveaway", "click here", "free money",
}

const (
	ReasonURL         = "url_not_allowed"
	ReasonContactInfo = "contact_info_not_allowed"
	ReasonSpam        = "spam_detected"
)

// ContentScreener flags user text that looks like contact details, links or
// spam. Upper-case runs are allowed since model numbers are upper-case.
type ContentScreener struct {
	spamWordRegexps     []*regexp.Regexp
	urlPattern          *regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
}

func NewContentScreener() *ContentScreener {
	cs := &ContentScreener{
		urlPattern:          regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`),
		emailPattern:        regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		phonePattern:        regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.\s]?\d{4}|\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`),
		repeatedCharPattern: repeatedRunPattern(6),
	}
	cs.spamWordRegexps = make([]*regexp.Regexp, 0, len(SpamWords))
	for _, word := range SpamWords {
		cs.spamWordRegexps = append(cs.spamWordRegexps, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return cs
}

// Screen reports whether text is clean, and the reason when it is not.
func (cs *ContentScreener) Screen(text string) (bool, string) {
	if text == "" {
		return true, ""
	}
	if cs.urlPattern.MatchString(text) {
		return false, ReasonURL
	}
	if cs.emailPattern.MatchString(text) || cs.phonePattern.MatchString(text) {
		return false, ReasonContactInfo
	}
	for _, re := range cs.spamWordRegexps {
		if re.MatchString(text) {
			return false, ReasonSpam
		}
	}
	if cs.repeatedCharPattern.MatchString(text) {
		return false, ReasonSpam
	}
	return true, ""
}

// repeatedRunPattern matches any lower-case letter or ?!. repeated n or more times.
// RE2 has no backreferences, so each rune gets its own alternative.
func repeatedRunPattern(n int) *regexp.Regexp {
	runes := "abcdefghijklmnopqrstuvwxyz!?."
	alts := make([]string, 0, len(runes))
	for _, r := range runes {
		alts = append(alts, fmt.Sprintf("%s{%d,}", regexp.QuoteMeta(string(r)), n))
	}
	return regexp.MustCompile(`(` + strings.Join(alts, "|") + `)`)
}
