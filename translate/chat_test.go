package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func chatProvider(url string) Provider {
	return Provider{
		ID:          ProviderCustomOpenAI,
		Name:        "test",
		BaseURL:     url + "/v1/",
		APIKey:      "sk-test",
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		Timeout:     5 * time.Second,
	}
}

func TestChatClient_Translate(t *testing.T) {
	var got struct {
		Model          string  `json:"model"`
		Temperature    float64 `json:"temperature"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"de\":{\"save\":\"Speichern\"}}"}}]}`)
	}))
	defer srv.Close()

	c := NewChatClient(chatProvider(srv.URL), Prompt{ProjectName: "Exile Tools"})
	req := Request{Chunk: mustParse(t, `{"save":"Save"}`), Languages: []string{"de"}}
	raw, err := c.Translate(context.Background(), req)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	out, err := ParseResponse(raw, req)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if v, _ := out["de"].Get("save"); v != "Speichern" {
		t.Fatalf("de save = %v, want Speichern", v)
	}

	if got.Model != DefaultModel || got.Temperature != DefaultTemperature || got.ResponseFormat.Type != "json_object" {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if !strings.Contains(got.Messages[0].Content, "Exile Tools") {
		t.Errorf("system prompt lacks project name")
	}
	if !strings.Contains(got.Messages[1].Content, `"save": "Save"`) {
		t.Errorf("user prompt lacks source texts:\n%s", got.Messages[1].Content)
	}
}

func TestChatClient_Errors(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		header     map[string]string
		body       string
		retryAfter time.Duration
		wantStatus int
	}{
		{name: "rate limited", status: 429, header: map[string]string{"Retry-After": "7"}, body: `{}`, retryAfter: 7 * time.Second, wantStatus: 429},
		{name: "server error", status: 502, body: `bad gateway`, wantStatus: 502},
		{name: "api error payload", status: 200, body: `{"error":{"message":"invalid api key"}}`},
		{name: "no choices", status: 200, body: `{"choices":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tc.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewChatClient(chatProvider(srv.URL), Prompt{}).Translate(context.Background(), Request{
				Chunk:     mustParse(t, `{"a":"A"}`),
				Languages: []string{"de"},
			})
			if !errors.Is(err, ErrTransport) {
				t.Fatalf("error = %v, want ErrTransport", err)
			}
			var se *StatusError
			if tc.wantStatus == 0 {
				if errors.As(err, &se) {
					t.Fatalf("unexpected StatusError %v", se)
				}
				return
			}
			if !errors.As(err, &se) || se.Code != tc.wantStatus || se.RetryAfter != tc.retryAfter {
				t.Fatalf("StatusError = %+v, want code %d retry %v", se, tc.wantStatus, tc.retryAfter)
			}
		})
	}
}

func TestNew_ValidatesProvider(t *testing.T) {
	providers := DefaultProviders()
	ctx := context.Background()

	if _, err := New(ctx, providers[ProviderOpenAI], Prompt{}); err == nil {
		t.Error("openai without an API key should fail")
	}

	ollama := providers[ProviderOllama]
	ollama.Model = "llama3.1"
	if _, err := New(ctx, ollama, Prompt{}); err != nil {
		t.Errorf("ollama without an API key: %v", err)
	}

	custom := providers[ProviderCustomOpenAI]
	custom.Model, custom.APIKey = "m", "k"
	if _, err := New(ctx, custom, Prompt{}); err == nil {
		t.Error("custom-openai without a base URL should fail")
	}

	if _, err := New(ctx, providers[ProviderLambda], Prompt{}); err == nil {
		t.Error("lambda without a function name should fail")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Errorf("parseRetryAfter(3) = %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Errorf("parseRetryAfter(soon) = %v", got)
	}
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 59*time.Minute {
		t.Errorf("parseRetryAfter(date) = %v", got)
	}
}

func TestPrompts(t *testing.T) {
	sys := Prompt{ProjectName: "Exile Tools", ProjectDescription: "a loot filter editor", Guidance: "Keep item names in English."}.SystemPrompt()
	for _, want := range []string{"You are translating for Exile Tools, a loot filter editor.", "Keep item names in English."} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt lacks %q", want)
		}
	}
	if strings.Contains(Prompt{}.SystemPrompt(), "You are translating for") {
		t.Error("system prompt mentions an empty project")
	}

	user, err := UserPrompt(mustParse(t, `{"greeting":"Hello {name}"}`), []string{"de", "xx"})
	if err != nil {
		t.Fatalf("UserPrompt: %v", err)
	}
	for _, want := range []string{"these languages: de (German), xx.", "{{variable}}", `"greeting": "Hello {name}"`, "codes (de, xx)"} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt lacks %q:\n%s", want, user)
		}
	}
}
