package completion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

const testKeyEnv = "PMO_TEST_COMPLETIONS_KEY"

func newTestInvoker(t *testing.T, url string, timeout time.Duration) *Invoker {
	t.Helper()
	return NewInvoker(InvokerConfig{Endpoint: url, APIKeyEnv: testKeyEnv, Timeout: timeout})
}

func TestInvokerSendsJSONModeRequest(t *testing.T) {
	t.Setenv(testKeyEnv, "sk-test")

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer srv.Close()

	temp := 0.3
	body, err := newTestInvoker(t, srv.URL, time.Second).Complete(context.Background(), Request{
		Model: "gpt-5-nano", System: "persona", Prompt: "prompt", Temperature: &temp,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"choices":[{"message":{"content":"{}"}}]}`, string(body))

	assert.Equal(t, "gpt-5-nano", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "persona"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "prompt"}, got.Messages[1])
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.3, *got.Temperature, 1e-9)
}

func TestInvokerOmitsUnsetTemperature(t *testing.T) {
	t.Setenv(testKeyEnv, "sk-test")

	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &raw))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestInvoker(t, srv.URL, time.Second).Complete(context.Background(), Request{Model: "m"})
	require.NoError(t, err)
	assert.NotContains(t, raw, "temperature")
}

func TestInvokerMissingKeyMakesNoRequest(t *testing.T) {
	t.Setenv(testKeyEnv, "")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := newTestInvoker(t, srv.URL, time.Second).Complete(context.Background(), Request{Model: "m"})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, testKeyEnv, cfgErr.Variable)
	assert.Zero(t, calls.Load())
}

func TestInvokerUpstreamError(t *testing.T) {
	t.Setenv(testKeyEnv, "sk-test")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	_, err := newTestInvoker(t, srv.URL, time.Second).Complete(context.Background(), Request{Model: "m"})
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusUnauthorized, upErr.StatusCode)
	assert.Equal(t, `{"error":"invalid key"}`, upErr.Body)
}

func TestInvokerTimeout(t *testing.T) {
	t.Setenv(testKeyEnv, "sk-test")

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestInvoker(t, srv.URL, 50*time.Millisecond).Complete(context.Background(), Request{Model: "m"})
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.True(t, timeoutErr.Timeout())
}

func TestDecodeEnvelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantKind EnvelopeKind
		wantErr  bool
	}{
		{
			name:     "responses shape",
			body:     `{"output":[{"content":[{"type":"reasoning","text":"x"},{"type":"output_text","text":"{\"a\":1}"}]}]}`,
			wantKind: EnvelopeResponses,
		},
		{
			name:     "chat shape",
			body:     `{"choices":[{"message":{"content":"{\"a\":1}"}}]}`,
			wantKind: EnvelopeChat,
		},
		{
			name:     "responses shape wins over chat",
			body:     `{"output":[{"content":[{"type":"output_text","text":"{}"}]}],"choices":[{"message":{"content":"{}"}}]}`,
			wantKind: EnvelopeResponses,
		},
		{
			name:     "null output content falls back to chat",
			body:     `{"output":[{"content":null}],"choices":[{"message":{"content":"{}"}}]}`,
			wantKind: EnvelopeChat,
		},
		{name: "no output_text element", body: `{"output":[{"content":[{"type":"refusal","text":"no"}]}]}`, wantErr: true},
		{name: "empty choices", body: `{"choices":[]}`, wantErr: true},
		{name: "null message content", body: `{"choices":[{"message":{"content":null}}]}`, wantErr: true},
		{name: "unrelated object", body: `{"id":"x"}`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.body))
			if tt.wantErr {
				var extErr *ExtractionError
				require.ErrorAs(t, err, &extErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, env.Kind)
		})
	}
}

func TestParseStructuredPayload(t *testing.T) {
	t.Parallel()

	env, err := DecodeEnvelope([]byte(`{"choices":[{"message":{"content":{"a":[1,2]}}}]}`))
	require.NoError(t, err)
	obj, err := env.Parse()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{float64(1), float64(2)}}, obj)
}

func TestParseErrorCarriesText(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"choices":[{"message":{"content":"{not json"}}]}`), nil)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "{not json", parseErr.Text)
	assert.Contains(t, err.Error(), "{not json")
}

func TestParseRejectsNonObject(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte(`{"choices":[{"message":{"content":"[1,2]"}}]}`), nil)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.True(t, errors.Is(err, errNotObject))
}

func TestDecodeFillsDefaults(t *testing.T) {
	t.Parallel()

	out := schema.Object(map[string]*schema.JSONSchema{
		"items":       schema.Strings(""),
		"probability": schema.Number("").WithDefault(70),
		"level":       schema.Enum("", "low", "medium").WithDefault("medium"),
	})
	got, err := Decode([]byte(`{"output":[{"content":[{"type":"output_text","text":"{\"items\":[\"a\"],\"level\":null}"}]}]}`), out)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"items":       []any{"a"},
		"probability": float64(70),
		"level":       "medium",
	}, got)
}

func TestDecodeReturnsFilledNestedObjects(t *testing.T) {
	t.Parallel()

	out := schema.Object(map[string]*schema.JSONSchema{
		"risk_matrix": schema.Object(map[string]*schema.JSONSchema{
			"critical_risks": schema.Strings(""),
			"low_risks":      schema.Strings(""),
		}),
	})
	got, err := Decode([]byte(`{"choices":[{"message":{"content":"{\"risk_matrix\":{\"low_risks\":[\"R1\"]}}"}}]}`), out)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"risk_matrix": map[string]any{
			"critical_risks": []any{},
			"low_risks":      []any{"R1"},
		},
	}, got)

	got, err = Decode([]byte(`{"choices":[{"message":{"content":"{}"}}]}`), out)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"risk_matrix": map[string]any{"critical_risks": []any{}, "low_risks": []any{}},
	}, got)
}

func TestDecodeRoundTripUnchanged(t *testing.T) {
	t.Parallel()

	out := schema.Object(map[string]*schema.JSONSchema{
		"items": schema.Strings(""),
		"n":     schema.Number("").WithDefault(70),
	})
	payload := `{"items":["x","y"],"n":3,"other":{"k":true}}`
	quoted, err := json.Marshal(payload)
	require.NoError(t, err)

	got, err := Decode([]byte(`{"choices":[{"message":{"content":`+string(quoted)+`}}]}`), out)
	require.NoError(t, err)
	assert.JSONEq(t, payload, mustJSON(t, got))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
