package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelRegistry_List(t *testing.T) {
	r := NewModelRegistry(ModelCredentials{})

	list := r.List()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID)
	}

	p, ok := r.Resolve("gemma-3-27b-it")
	require.True(t, ok)
	assert.Equal(t, "gemma", p.ID)
	assert.Equal(t, GoogleAIProvider, p.Type)
}

func TestModelRegistry_UnknownModel(t *testing.T) {
	r := NewModelRegistry(ModelCredentials{})

	_, err := r.GetModel(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestModelRegistry_MissingCredentials(t *testing.T) {
	r := NewModelRegistry(ModelCredentials{})

	for _, id := range []string{"gemma", "gpt4o-mini", "claude", "github", "azure"} {
		_, err := r.GetModel(context.Background(), id)
		assert.ErrorIs(t, err, ErrMissingCredentials, id)
	}
}

func TestModelRegistry_CachesInstances(t *testing.T) {
	r := NewModelRegistry(ModelCredentials{OpenAIAPIKey: "sk-test"})

	first, err := r.GetModel(context.Background(), "gpt4o-mini")
	require.NoError(t, err)
	second, err := r.GetModel(context.Background(), "gpt4o-mini")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestModelRegistry_RegisterReplaces(t *testing.T) {
	r := NewModelRegistry(ModelCredentials{})
	r.Register(&ModelProvider{ID: "custom", Name: "mistral", Type: OllamaProvider})

	p, ok := r.Resolve("custom")
	require.True(t, ok)
	assert.Equal(t, "mistral", p.Name)

	model, err := r.GetModel(context.Background(), "custom")
	require.NoError(t, err)
	assert.NotNil(t, model)
}
