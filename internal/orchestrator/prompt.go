package orchestrator

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SystemPrompt is the assistant persona, loaded from a PROMPT.md with an
// optional YAML front matter block.
type SystemPrompt struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Body string `yaml:"-"`
}

const defaultPromptBody = `You are a precise documentation assistant.
Answer questions about software libraries using only the documentation
excerpts provided in the conversation. When excerpts are present, ground
every claim in them and cite the source paths. When no excerpts are
present, answer from general knowledge and say so. If the documentation
does not cover the question, say that plainly instead of guessing.
Keep answers short and include code examples when the docs provide them.`

// DefaultSystemPrompt returns the built-in persona used when no PROMPT.md
// exists.
func DefaultSystemPrompt() *SystemPrompt {
	return &SystemPrompt{
		Name:        "doclantern",
		Description: "documentation lookup assistant",
		Body:        defaultPromptBody,
	}
}

// LoadSystemPrompt reads a PROMPT.md from path. A missing file falls back
// to the default persona; a malformed front matter is a hard error so a
// broken edit doesn't silently change behaviour.
func LoadSystemPrompt(path string) (*SystemPrompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("no prompt file, using default persona", "path", path)
			return DefaultSystemPrompt(), nil
		}
		return nil, fmt.Errorf("read prompt %s: %w", path, err)
	}

	p, err := parsePrompt(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", path, err)
	}
	return p, nil
}

// parsePrompt splits an optional "---" front matter block from the body.
func parsePrompt(content string) (*SystemPrompt, error) {
	p := &SystemPrompt{Name: "doclantern"}

	trimmed := strings.TrimLeft(content, "\n\r \t")
	if strings.HasPrefix(trimmed, "---") {
		rest := trimmed[3:]
		end := strings.Index(rest, "\n---")
		if end < 0 {
			return nil, fmt.Errorf("unterminated front matter")
		}
		if err := yaml.Unmarshal([]byte(rest[:end]), p); err != nil {
			return nil, fmt.Errorf("front matter: %w", err)
		}
		body := rest[end+4:]
		p.Body = strings.TrimSpace(body)
	} else {
		p.Body = strings.TrimSpace(content)
	}

	if p.Body == "" {
		p.Body = defaultPromptBody
	}
	return p, nil
}
