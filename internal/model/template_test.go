package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageTemplateValidation(t *testing.T) {
	_, err := NewMessageTemplate("", "content", nil)
	assert.Error(t, err)

	_, err = NewMessageTemplate("subject", "", nil)
	assert.Error(t, err)

	_, err = NewMessageTemplate(strings.Repeat("s", 501), "content", nil)
	assert.Error(t, err)

	_, err = NewMessageTemplate("subject", strings.Repeat("c", 10001), nil)
	assert.Error(t, err)

	tmpl, err := NewMessageTemplate("  Hello  ", "  World  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello", tmpl.Subject)
	assert.Equal(t, "World", tmpl.Content)
	assert.NotNil(t, tmpl.Data)
}

func TestRenderSubstitution(t *testing.T) {
	tmpl, err := NewMessageTemplate(
		"Order {order_id} shipped",
		"Hi {name}, your order {order_id} is on its way.",
		map[string]any{"order_id": 42, "name": "Alice"},
	)
	require.NoError(t, err)

	msg, err := tmpl.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "Order 42 shipped", msg.Subject)
	assert.Equal(t, "Hi Alice, your order 42 is on its way.", msg.Content)
}

func TestRenderExtraOverridesTemplateData(t *testing.T) {
	tmpl, err := NewMessageTemplate("Hello {name}", "Bye {name}", map[string]any{"name": "Alice"})
	require.NoError(t, err)

	msg, err := tmpl.Render(map[string]any{"name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob", msg.Subject)
	assert.Equal(t, "Bye Bob", msg.Content)
}

func TestRenderMissingVariable(t *testing.T) {
	tmpl, err := NewMessageTemplate("Hello {name}", "content", nil)
	require.NoError(t, err)

	_, err = tmpl.Render(nil)
	require.Error(t, err)

	var tmplErr *TemplateError
	require.ErrorAs(t, err, &tmplErr)
	assert.Equal(t, "name", tmplErr.Variable)
}

func TestRenderLeavesNonVariablesAlone(t *testing.T) {
	tmpl, err := NewMessageTemplate("Braces { } and {123} stay", "plain content", nil)
	require.NoError(t, err)

	msg, err := tmpl.Render(nil)
	require.NoError(t, err)
	assert.Equal(t, "Braces { } and {123} stay", msg.Subject)
}
