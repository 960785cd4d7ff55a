package draft

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sndlabs/snd/internal/model"
)

type mapSecrets map[string]string

func (m mapSecrets) Get(key string) (string, error) {
	return m[key], nil
}

func chatFixture(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	encoded, _ := json.Marshal(resp)
	return string(encoded)
}

func TestOpenAIProducerGenerate(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatFixture("Hi, Thursday works for me.")))
	}))
	defer server.Close()

	producer := NewOpenAIProducer(server.URL, "llm:default", mapSecrets{"llm:default": "sk-test"})

	result, err := producer.Generate(context.Background(), Request{
		ThreadID: "t1",
		Model:    "gpt-4o-mini",
		Vibe:     "brief, technical, direct",
		Messages: []model.Message{
			{FromAddress: "alice@example.com", BodyText: "Does Thursday work?", SentAt: 1700000000000},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Hi, Thursday works for me.", result.Content)
	assert.Equal(t, "gpt-4o-mini", result.Model)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Contains(t, gotBody.Messages[1].Content, "alice@example.com")
	assert.Contains(t, gotBody.Messages[1].Content, "brief, technical, direct")
}

func TestOpenAIProducerEmptyContentIsNoDraft(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatFixture("   ")))
	}))
	defer server.Close()

	producer := NewOpenAIProducer(server.URL, "llm:default", mapSecrets{"llm:default": "sk-test"})

	result, err := producer.Generate(context.Background(), Request{Model: "gpt-4o-mini"})
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestOpenAIProducerHTTPFailureIsProducerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	producer := NewOpenAIProducer(server.URL, "llm:default", mapSecrets{"llm:default": "sk-test"})

	result, err := producer.Generate(context.Background(), Request{Model: "gpt-4o-mini"})
	assert.Nil(t, result)
	assert.True(t, IsProducerError(err))
}

func TestOpenAIProducerMissingKey(t *testing.T) {
	producer := NewOpenAIProducer("http://unused.invalid", "llm:default", mapSecrets{})

	result, err := producer.Generate(context.Background(), Request{Model: "gpt-4o-mini"})
	assert.Nil(t, result)
	require.Error(t, err)
	// A missing key is a configuration problem, not a retryable
	// provider failure.
	assert.False(t, IsProducerError(err))
}

func TestBuildPromptUsesLastEightMessages(t *testing.T) {
	messages := make([]model.Message, 10)
	for i := range messages {
		messages[i] = model.Message{
			FromAddress: "a@example.com",
			BodyText:    "message number " + string(rune('0'+i)),
			SentAt:      int64(i),
		}
	}

	prompt := buildPrompt(Request{Vibe: "brief", Messages: messages})

	assert.NotContains(t, prompt, "message number 0")
	assert.NotContains(t, prompt, "message number 1")
	assert.Contains(t, prompt, "message number 2")
	assert.Contains(t, prompt, "message number 9")
}
