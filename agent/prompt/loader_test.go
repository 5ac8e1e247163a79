package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptSet(t *testing.T) {
	set, err := LoadPromptSet()
	require.NoError(t, err)

	assert.Contains(t, set.Router, "agents_to_activate")
	assert.Contains(t, set.Router, "context_extraction")
	assert.Contains(t, set.Strategist, "dailyMissions")
	assert.Contains(t, set.Apology, "apologyMessage")
	assert.Contains(t, set.ResearcherPersona, "findings")
	assert.NotEmpty(t, set.Logo)
}

func TestRender_RouterWithoutContext(t *testing.T) {
	set := MustLoadPromptSet()

	out, err := Render(context.Background(), set.Router, map[string]any{
		"message": "Toko saya sepi",
		"context": "",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Belum ada konteks sebelumnya")
	assert.Contains(t, out, `"Toko saya sepi"`)
}

func TestRender_Poster(t *testing.T) {
	set := MustLoadPromptSet()

	out, err := Render(context.Background(), set.Poster, map[string]any{
		"businessName":  "Kopi Ani",
		"eventName":     "Ramadan Sale",
		"visualConcept": "lentera hangat",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Kopi Ani")
	assert.Contains(t, out, "Ramadan Sale")
	assert.Contains(t, out, "lentera hangat")
}
