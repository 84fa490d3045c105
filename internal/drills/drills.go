// Package drills defines the drill catalog domain: drills, prompts, and the
// accepted-answer matching rules used by the dialog engine. Drills handed out
// by a catalog are deep snapshots, so drills already in flight are isolated
// from later catalog edits.
package drills

import "strings"

// DefaultMaxFailures is used when a prompt does not declare its own limit.
const DefaultMaxFailures = 1

// PromptMessage is one outbound message belonging to a prompt. Text may
// contain {{label}} tokens resolved against the translation catalog.
type PromptMessage struct {
	Text     string `json:"text"`
	MediaURL string `json:"media_url,omitempty"`
}

// Prompt is one step within a drill.
//
// A prompt with accepted responses waits for a matching answer; a prompt with
// only a profile key captures any answer; a prompt with neither is
// informational and any reply advances past it.
type Prompt struct {
	Slug                   string          `json:"slug"`
	Messages               []PromptMessage `json:"messages"`
	MaxFailures            int             `json:"max_failures,omitempty"`
	CorrectResponse        string          `json:"correct_response,omitempty"`
	AcceptedResponses      []string        `json:"accepted_responses,omitempty"`
	ResponseUserProfileKey string          `json:"response_user_profile_key,omitempty"`
}

// MaxFailuresOrDefault returns the prompt's failure limit.
func (p Prompt) MaxFailuresOrDefault() int {
	if p.MaxFailures > 0 {
		return p.MaxFailures
	}
	return DefaultMaxFailures
}

// ShouldAdvanceWithAnswer reports whether the answer satisfies the prompt's
// accept rule for the given language. Prompts without accepted responses
// advance on any reply.
func (p Prompt) ShouldAdvanceWithAnswer(answer, lang string) bool {
	if len(p.AcceptedResponses) == 0 {
		return true
	}
	normalized := NormalizeAnswer(answer)
	for _, accepted := range p.AcceptedResponses {
		if NormalizeAnswer(Localize(accepted, lang, nil)) == normalized {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the prompt.
func (p Prompt) Clone() Prompt {
	cloned := p
	cloned.Messages = append([]PromptMessage(nil), p.Messages...)
	cloned.AcceptedResponses = append([]string(nil), p.AcceptedResponses...)
	return cloned
}

// Drill is an ordered sequence of prompts delivered to a user over SMS.
type Drill struct {
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Prompts []Prompt `json:"prompts"`
}

// FirstPrompt returns the drill's first prompt.
func (d Drill) FirstPrompt() (Prompt, bool) {
	if len(d.Prompts) == 0 {
		return Prompt{}, false
	}
	return d.Prompts[0], true
}

// PromptBySlug returns the prompt with the given slug.
func (d Drill) PromptBySlug(slug string) (Prompt, bool) {
	for _, prompt := range d.Prompts {
		if prompt.Slug == slug {
			return prompt, true
		}
	}
	return Prompt{}, false
}

// NextPrompt returns the prompt following the one with the given slug.
func (d Drill) NextPrompt(slug string) (Prompt, bool) {
	for i, prompt := range d.Prompts {
		if prompt.Slug == slug {
			if i+1 < len(d.Prompts) {
				return d.Prompts[i+1], true
			}
			return Prompt{}, false
		}
	}
	return Prompt{}, false
}

// IsLastPrompt reports whether the slug identifies the drill's final prompt.
func (d Drill) IsLastPrompt(slug string) bool {
	if len(d.Prompts) == 0 {
		return false
	}
	return d.Prompts[len(d.Prompts)-1].Slug == slug
}

// Clone returns a deep copy of the drill.
func (d Drill) Clone() Drill {
	cloned := d
	cloned.Prompts = make([]Prompt, len(d.Prompts))
	for i, prompt := range d.Prompts {
		cloned.Prompts[i] = prompt.Clone()
	}
	return cloned
}

// NormalizeAnswer canonicalizes free-text replies for matching: lowercase,
// trimmed, inner whitespace collapsed.
func NormalizeAnswer(answer string) string {
	return strings.Join(strings.Fields(strings.ToLower(answer)), " ")
}
