package gemini

import (
	"testing"

	"github.com/aristath/sharesathi/internal/clients/llm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestBuildContents(t *testing.T) {
	contents := BuildContents([]llm.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "Namaste"},
	}, "What is SIP?")

	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "Namaste", contents[1].Parts[0].Text)
	assert.Equal(t, "What is SIP?", contents[2].Parts[0].Text)
}

func TestName(t *testing.T) {
	assert.Equal(t, "gemini", NewClient("k", "m", zerolog.New(nil)).Name())
}
