package quiz

import (
	"context"
	"strings"
	"testing"

	"github.com/HerbHall/studyforge/pkg/llm/llmtest"
	"github.com/stretchr/testify/assert"
)

func TestTopicFromKeywords(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"strong python match", "Python functions and variables are the building blocks of a script.", "Python"},
		{"single database hit is enough", "My database crashed last night.", "Database"},
		{"sql statements", "SELECT name FROM users WHERE id = 1", "Sql"},
		{"single weak hit is not enough", "The map was old.", ""},
		{"nothing relevant", "The weather was nice.", ""},
		{"short keywords need word boundaries", "A caiman swam past the shipment.", ""},
		{"tie goes to earlier topic", "Ancient empire land on earth.", "Geography"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TopicFromKeywords(tt.content))
		})
	}
}

func TestTopicExtractor(t *testing.T) {
	ctx := context.Background()
	const plain = "Plants convert light into chemical energy."

	t.Run("empty content", func(t *testing.T) {
		inv := llmtest.NewInvoker("Botany")
		assert.Equal(t, DefaultTopic, NewTopicExtractor(inv, nil).Extract(ctx, "  "))
		assert.Equal(t, 0, inv.Calls())
	})

	t.Run("keywords win without a model call", func(t *testing.T) {
		inv := llmtest.NewInvoker("Botany")
		assert.Equal(t, "Python", NewTopicExtractor(inv, nil).Extract(ctx, "python code and functions"))
		assert.Equal(t, 0, inv.Calls())
	})

	t.Run("model answer", func(t *testing.T) {
		inv := llmtest.NewInvoker(" \"Photosynthesis\"\n")
		assert.Equal(t, "Photosynthesis", NewTopicExtractor(inv, nil).Extract(ctx, plain))
		assert.Equal(t, 1, inv.Calls())
	})

	t.Run("long model answer rejected", func(t *testing.T) {
		inv := llmtest.NewInvoker(strings.Repeat("word ", 20))
		assert.Equal(t, DefaultTopic, NewTopicExtractor(inv, nil).Extract(ctx, plain))
	})

	t.Run("model unavailable", func(t *testing.T) {
		assert.Equal(t, DefaultTopic, NewTopicExtractor(llmtest.NewUnavailableInvoker(), nil).Extract(ctx, plain))
	})

	t.Run("no model", func(t *testing.T) {
		assert.Equal(t, DefaultTopic, NewTopicExtractor(nil, nil).Extract(ctx, plain))
	})
}
