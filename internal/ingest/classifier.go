// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package ingest

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/memlayer-dev/memlayer/internal/store"
	memerr "github.com/memlayer-dev/memlayer/pkg/errors"
)

// CaptureMeta is the classifier's view of a capture event: the source tag
// supplied by the capture collaborator and the raw content.
type CaptureMeta struct {
	Source  string
	Content string
}

// Classifier assigns a platform and a conversation type to capture events.
// Classification is pure: deterministic, total, no I/O after construction.
type Classifier struct {
	aliases          map[string]store.Platform
	decisionKeywords []string
	factMinLen       int
}

// Rules is the yaml shape of an optional classifier rules file. Entries
// extend (and may override) the built-in alias and keyword tables.
type Rules struct {
	// PlatformAliases maps capture-source tags to platform names.
	PlatformAliases map[string]string `yaml:"platform_aliases"`
	// DecisionKeywords are lowercase phrases that mark a decision snippet.
	DecisionKeywords []string `yaml:"decision_keywords"`
}

// defaultAliases covers the tags the browser extension emits plus common
// hostnames seen in capture metadata.
func defaultAliases() map[string]store.Platform {
	return map[string]store.Platform{
		"chatgpt":           store.PlatformChatGPT,
		"openai":            store.PlatformChatGPT,
		"chat.openai.com":   store.PlatformChatGPT,
		"chatgpt.com":       store.PlatformChatGPT,
		"claude":            store.PlatformClaude,
		"anthropic":         store.PlatformClaude,
		"claude.ai":         store.PlatformClaude,
		"gemini":            store.PlatformGemini,
		"bard":              store.PlatformGemini,
		"gemini.google.com": store.PlatformGemini,
		"slack":             store.PlatformSlack,
		"discord":           store.PlatformDiscord,
		"web":               store.PlatformWeb,
	}
}

func defaultDecisionKeywords() []string {
	return []string{
		"we decided", "i decided", "decision:", "let's go with",
		"we will use", "we'll use", "agreed to", "chose to", "settled on",
	}
}

// NewClassifier builds a classifier with the built-in rule tables.
func NewClassifier() *Classifier {
	return &Classifier{
		aliases:          defaultAliases(),
		decisionKeywords: defaultDecisionKeywords(),
		factMinLen:       40,
	}
}

// NewClassifierFromRules builds a classifier extended by a yaml rules file.
func NewClassifierFromRules(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, memerr.Wrapf(err, memerr.CodeConfigLoadReadFailure, "reading classifier rules %s", path)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, memerr.Wrapf(err, memerr.CodeConfigValidateInvalidValue, "parsing classifier rules %s", path)
	}

	c := NewClassifier()
	for tag, name := range rules.PlatformAliases {
		platform := store.Platform(name)
		if !platform.Valid() {
			return nil, memerr.Errorf(memerr.CodeConfigValidateInvalidValue,
				"classifier rules: alias %q maps to unknown platform %q", tag, name)
		}
		c.aliases[strings.ToLower(tag)] = platform
	}
	for _, kw := range rules.DecisionKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			c.decisionKeywords = append(c.decisionKeywords, kw)
		}
	}
	return c, nil
}

// Classify maps capture metadata to a platform and conversation type.
// Every input maps to exactly one value of each; unrecognized source tags
// fall back to the other platform.
func (c *Classifier) Classify(meta CaptureMeta) (store.Platform, store.ConversationType) {
	return c.classifyPlatform(meta.Source), c.classifyType(meta.Content)
}

func (c *Classifier) classifyPlatform(source string) store.Platform {
	tag := strings.ToLower(strings.TrimSpace(source))
	if platform, ok := c.aliases[tag]; ok {
		return platform
	}
	return store.PlatformOther
}

func (c *Classifier) classifyType(content string) store.ConversationType {
	lower := strings.ToLower(content)

	if strings.Contains(content, "```") || hasIndentedBlock(content) {
		return store.TypeCode
	}

	for _, kw := range c.decisionKeywords {
		if strings.Contains(lower, kw) {
			return store.TypeDecision
		}
	}

	if questionDominant(content) {
		return store.TypeQuestion
	}

	if len(strings.TrimSpace(content)) >= c.factMinLen {
		return store.TypeFact
	}
	return store.TypeOther
}

// hasIndentedBlock reports whether at least two consecutive non-empty lines
// start with a tab or four spaces, the markdown code-block convention.
func hasIndentedBlock(content string) bool {
	run := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			run = 0
			continue
		}
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ") {
			run++
			if run >= 2 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// questionDominant reports whether question marks are the dominant sentence
// terminator in the content.
func questionDominant(content string) bool {
	var questions, statements int
	for _, r := range content {
		switch r {
		case '?':
			questions++
		case '.', '!':
			statements++
		}
	}
	if questions == 0 {
		return false
	}
	return questions >= statements
}
