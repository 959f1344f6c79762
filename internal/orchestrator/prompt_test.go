package orchestrator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSystemPrompt_MissingFileUsesDefault(t *testing.T) {
	p, err := LoadSystemPrompt(filepath.Join(t.TempDir(), "PROMPT.md"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Body != defaultPromptBody {
		t.Error("expected the default persona body")
	}
}

func TestLoadSystemPrompt_FrontMatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PROMPT.md")
	content := `---
name: librarian
description: answers from docs only
---

You are a strict librarian. Quote your sources.`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadSystemPrompt(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "librarian" {
		t.Errorf("name = %q", p.Name)
	}
	if p.Description != "answers from docs only" {
		t.Errorf("description = %q", p.Description)
	}
	if !strings.HasPrefix(p.Body, "You are a strict librarian") {
		t.Errorf("body = %q", p.Body)
	}
	if strings.Contains(p.Body, "---") {
		t.Error("front matter leaked into the body")
	}
}

func TestLoadSystemPrompt_BodyOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PROMPT.md")
	if err := os.WriteFile(path, []byte("Just a body, no front matter.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadSystemPrompt(path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Body != "Just a body, no front matter." {
		t.Errorf("body = %q", p.Body)
	}
}

func TestLoadSystemPrompt_UnterminatedFrontMatter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PROMPT.md")
	if err := os.WriteFile(path, []byte("---\nname: broken\nno terminator"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSystemPrompt(path); err == nil {
		t.Fatal("expected an error for unterminated front matter")
	}
}
