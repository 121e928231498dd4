// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func chatServer(t *testing.T, status int, content string, seen *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		if content == "" {
			w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
			return
		}
		resp := map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestOpenAIClient_Complete(t *testing.T) {
	var seen chatRequest
	srv := chatServer(t, http.StatusOK, `{"topic":"x"}`, &seen)
	defer srv.Close()

	c, err := NewOpenAIClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), Request{System: "sys", User: "user", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"topic":"x"}`, out)

	assert.Equal(t, DefaultOpenAIModel, seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "sys", seen.Messages[0].Content)
	assert.Equal(t, "user", seen.Messages[1].Role)
	assert.Equal(t, "user", seen.Messages[1].Content)
	require.NotNil(t, seen.ResponseFormat)
	assert.Equal(t, "json_object", seen.ResponseFormat.Type)
}

func TestOpenAIClient_PlainTextHasNoResponseFormat(t *testing.T) {
	var seen chatRequest
	srv := chatServer(t, http.StatusOK, "An answer.", &seen)
	defer srv.Close()

	c, err := NewOpenAIClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), Request{System: "sys", User: "q"})
	require.NoError(t, err)
	assert.Equal(t, "An answer.", out)
	assert.Equal(t, "gpt-4o-mini", seen.Model)
	assert.Nil(t, seen.ResponseFormat)
}

func TestOpenAIClient_Errors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		srv := chatServer(t, http.StatusInternalServerError, "", nil)
		defer srv.Close()

		c, err := NewOpenAIClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
		require.NoError(t, err)

		_, err = c.Complete(context.Background(), Request{User: "q"})
		assert.ErrorContains(t, err, "OpenAI API call failed")
	})

	t.Run("no choices", func(t *testing.T) {
		srv := chatServer(t, http.StatusOK, "", nil)
		defer srv.Close()

		c, err := NewOpenAIClient(Options{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
		require.NoError(t, err)

		_, err = c.Complete(context.Background(), Request{User: "q"})
		assert.ErrorContains(t, err, "no choices")
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewOpenAIClient(Options{})
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	c, err := New(context.Background(), Options{Provider: ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	_, err = New(context.Background(), Options{Provider: "llama"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = New(context.Background(), Options{Provider: ProviderGemini})
	assert.ErrorContains(t, err, "Gemini API key is required")
}

type geminiRequest struct {
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig *struct {
		ResponseMIMEType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

func geminiServer(t *testing.T, text string, seen *geminiRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/"+DefaultGeminiModel+":generateContent"), r.URL.Path)
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		if text == "" {
			w.Write([]byte(`{"candidates":[]}`))
			return
		}
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": text}},
				},
				"finishReason": "STOP",
			}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newGeminiTestClient(t *testing.T, srv *httptest.Server) *GeminiClient {
	t.Helper()
	c, err := NewGeminiClient(context.Background(), Options{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestGeminiClient_Complete(t *testing.T) {
	var seen geminiRequest
	srv := geminiServer(t, `{"topic":"x"}`, &seen)
	defer srv.Close()

	out, err := newGeminiTestClient(t, srv).Complete(context.Background(), Request{
		System: "be a pollster",
		User:   "survey this",
		JSON:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"topic":"x"}`, out)

	require.NotNil(t, seen.SystemInstruction)
	require.Len(t, seen.SystemInstruction.Parts, 1)
	assert.Equal(t, "be a pollster", seen.SystemInstruction.Parts[0].Text)
	require.Len(t, seen.Contents, 1)
	require.Len(t, seen.Contents[0].Parts, 1)
	assert.Equal(t, "survey this", seen.Contents[0].Parts[0].Text)
	require.NotNil(t, seen.GenerationConfig)
	assert.Equal(t, "application/json", seen.GenerationConfig.ResponseMIMEType)
}

func TestGeminiClient_PlainTextHasNoMIMEType(t *testing.T) {
	var seen geminiRequest
	srv := geminiServer(t, "Because of cost.", &seen)
	defer srv.Close()

	out, err := newGeminiTestClient(t, srv).Complete(context.Background(), Request{System: "s", User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "Because of cost.", out)

	if seen.GenerationConfig != nil {
		assert.Empty(t, seen.GenerationConfig.ResponseMIMEType)
	}
}

func TestGeminiClient_NoCandidates(t *testing.T) {
	srv := geminiServer(t, "", nil)
	defer srv.Close()

	_, err := newGeminiTestClient(t, srv).Complete(context.Background(), Request{System: "s", User: "u"})
	assert.ErrorContains(t, err, "Gemini returned no candidates")
}
