// Package domain holds the per-phone-number dialog aggregate: the user
// profile, the in-flight drill, and the prompt the conversation is
// waiting on.
package domain

import "strings"

// AccountInfo carries registration metadata returned by the validation
// service. Keys are account-system specific and passed through untouched.
type AccountInfo map[string]any

// Clone returns an independent copy.
func (a AccountInfo) Clone() AccountInfo {
	if a == nil {
		return nil
	}
	cp := make(AccountInfo, len(a))
	for k, v := range a {
		cp[k] = v
	}
	return cp
}

// UserProfile captures what is known about the person behind a phone
// number. Events snapshot it by value, so it must stay cheap to copy.
type UserProfile struct {
	Validated   bool        `json:"validated"`
	IsDemo      bool        `json:"is_demo,omitempty"`
	OptedOut    bool        `json:"opted_out,omitempty"`
	Name        string      `json:"name,omitempty"`
	Language    string      `json:"language,omitempty"`
	AccountInfo AccountInfo `json:"account_info,omitempty"`
}

// Clone returns an independent copy of the profile.
func (p UserProfile) Clone() UserProfile {
	cp := p
	cp.AccountInfo = p.AccountInfo.Clone()
	return cp
}

// languageNames maps spelled-out language answers to BCP 47 tags so a
// captured "spanish" (or "español") localizes later copy correctly.
var languageNames = map[string]string{
	"english": "en",
	"inglés":  "en",
	"ingles":  "en",
	"spanish": "es",
	"español": "es",
	"espanol": "es",
}

// SetField writes a captured prompt response into the profile. Known
// fields map onto typed profile members; anything else lands in
// AccountInfo so drill authors can capture arbitrary keys.
func (p *UserProfile) SetField(key, value string) {
	switch key {
	case "name":
		p.Name = strings.TrimSpace(value)
	case "language":
		p.Language = normalizeLanguage(value)
	default:
		if p.AccountInfo == nil {
			p.AccountInfo = AccountInfo{}
		}
		p.AccountInfo[key] = value
	}
}

func normalizeLanguage(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if tag, ok := languageNames[normalized]; ok {
		return tag
	}
	if runes := []rune(normalized); len(runes) > 2 {
		return string(runes[:2])
	}
	return normalized
}
