// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memlayer Contributors

package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlayer-dev/memlayer/internal/ingest"
	"github.com/memlayer-dev/memlayer/internal/store"
)

func TestClassifyPlatform(t *testing.T) {
	c := ingest.NewClassifier()

	tests := []struct {
		source string
		want   store.Platform
	}{
		{"chatgpt", store.PlatformChatGPT},
		{"chat.openai.com", store.PlatformChatGPT},
		{"ChatGPT", store.PlatformChatGPT},
		{"claude", store.PlatformClaude},
		{"claude.ai", store.PlatformClaude},
		{"gemini", store.PlatformGemini},
		{"bard", store.PlatformGemini},
		{"slack", store.PlatformSlack},
		{"discord", store.PlatformDiscord},
		{"web", store.PlatformWeb},
		{" slack ", store.PlatformSlack},
		{"teams", store.PlatformOther},
		{"", store.PlatformOther},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			platform, _ := c.Classify(ingest.CaptureMeta{Source: tt.source, Content: "x"})
			assert.Equal(t, tt.want, platform)
		})
	}
}

func TestClassifyType(t *testing.T) {
	c := ingest.NewClassifier()

	tests := []struct {
		name    string
		content string
		want    store.ConversationType
	}{
		{"fenced code", "here is the fix:\n```go\nfmt.Println(1)\n```", store.TypeCode},
		{"indented block", "steps:\n    kubectl get pods\n    kubectl logs app", store.TypeCode},
		{"decision phrase", "After the review we decided to ship on Friday.", store.TypeDecision},
		{"decision beats question", "We decided to use Redis, right?", store.TypeDecision},
		{"pure question", "How does the scheduler pick a node?", store.TypeQuestion},
		{"question dominant", "What about retries? And timeouts?", store.TypeQuestion},
		{"statement dominant", "It retries three times. It times out after 5s. Is that ok? No. No.", store.TypeFact},
		{"long statement", "The deployment pipeline runs integration tests before promoting any build to staging.", store.TypeFact},
		{"short snippet", "ship it", store.TypeOther},
		{"empty", "", store.TypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, convType := c.Classify(ingest.CaptureMeta{Source: "web", Content: tt.content})
			assert.Equal(t, tt.want, convType)
		})
	}
}

func TestClassifierDeterministic(t *testing.T) {
	c := ingest.NewClassifier()
	meta := ingest.CaptureMeta{Source: "slack", Content: "We agreed to split the service."}

	p1, t1 := c.Classify(meta)
	p2, t2 := c.Classify(meta)
	assert.Equal(t, p1, p2)
	assert.Equal(t, t1, t2)
}

func TestNewClassifierFromRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	rules := `platform_aliases:
  teams: other
  work-slack: slack
decision_keywords:
  - "final answer:"
`
	require.NoError(t, os.WriteFile(path, []byte(rules), 0o600))

	c, err := ingest.NewClassifierFromRules(path)
	require.NoError(t, err)

	platform, _ := c.Classify(ingest.CaptureMeta{Source: "work-slack", Content: "x"})
	assert.Equal(t, store.PlatformSlack, platform)

	_, convType := c.Classify(ingest.CaptureMeta{Source: "web", Content: "Final answer: blue."})
	assert.Equal(t, store.TypeDecision, convType)

	// Built-in aliases survive the extension.
	platform, _ = c.Classify(ingest.CaptureMeta{Source: "claude", Content: "x"})
	assert.Equal(t, store.PlatformClaude, platform)
}

func TestNewClassifierFromRulesRejectsUnknownPlatform(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("platform_aliases:\n  irc: usenet\n"), 0o600))

	_, err := ingest.NewClassifierFromRules(path)
	assert.Error(t, err)
}

func TestNewClassifierFromRulesMissingFile(t *testing.T) {
	_, err := ingest.NewClassifierFromRules(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
