package model

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxSubjectLength = 500
	maxContentLength = 10000
)

var templateVarPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// TemplateError reports a variable referenced by a template but absent
// from its data at render time.
type TemplateError struct {
	Variable string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("missing template variable: %s", e.Variable)
}

// MessageTemplate holds an unrendered subject/content pair plus the
// data used to fill {placeholders}.
type MessageTemplate struct {
	Subject string         `json:"subject" db:"subject"`
	Content string         `json:"content" db:"content"`
	Data    map[string]any `json:"template_data" db:"-"`
}

func NewMessageTemplate(subject, content string, data map[string]any) (*MessageTemplate, error) {
	subject = strings.TrimSpace(subject)
	content = strings.TrimSpace(content)
	if subject == "" {
		return nil, fmt.Errorf("message subject cannot be empty")
	}
	if len(subject) > maxSubjectLength {
		return nil, fmt.Errorf("message subject is too long (max %d characters)", maxSubjectLength)
	}
	if content == "" {
		return nil, fmt.Errorf("message content cannot be empty")
	}
	if len(content) > maxContentLength {
		return nil, fmt.Errorf("message content is too long (max %d characters)", maxContentLength)
	}
	if data == nil {
		data = map[string]any{}
	}
	return &MessageTemplate{Subject: subject, Content: content, Data: data}, nil
}

// Render substitutes template variables into both subject and content.
// Extra values override the template's own data for the same key.
func (t *MessageTemplate) Render(extra map[string]any) (*RenderedMessage, error) {
	data := make(map[string]any, len(t.Data)+len(extra))
	for k, v := range t.Data {
		data[k] = v
	}
	for k, v := range extra {
		data[k] = v
	}

	subject, err := substitute(t.Subject, data)
	if err != nil {
		return nil, err
	}
	content, err := substitute(t.Content, data)
	if err != nil {
		return nil, err
	}
	return &RenderedMessage{Subject: subject, Content: content}, nil
}

func substitute(s string, data map[string]any) (string, error) {
	var missing string
	out := templateVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := match[1 : len(match)-1]
		v, ok := data[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return match
		}
		return fmt.Sprintf("%v", v)
	})
	if missing != "" {
		return "", &TemplateError{Variable: missing}
	}
	return out, nil
}

// RenderedMessage is a message with all variables resolved, ready to
// hand to a provider.
type RenderedMessage struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}
