package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := writeTable(&buf, false, []string{"ID", "NAME"}, [][]string{
		{"aaaaaaaa", "web"},
		{"b", "api"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ID         NAME\naaaaaaaa   web\nb          api\n", buf.String())
}

func TestWriteTable_Color(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, true, []string{"ID"}, [][]string{{"a"}}))
	assert.Contains(t, buf.String(), "ID")
	assert.Contains(t, buf.String(), "\na\n")
}

func TestStyled_NonTerminal(t *testing.T) {
	assert.False(t, styled(&bytes.Buffer{}))
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("table"))
	assert.NoError(t, checkFormat("yaml"))
	assert.Error(t, checkFormat("json"))
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeYAML(&buf, map[string]any{"name": "web", "tags": []string{"a"}}))
	assert.Equal(t, "name: web\ntags:\n  - a\n", buf.String())
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "x", orDash("x"))
}
