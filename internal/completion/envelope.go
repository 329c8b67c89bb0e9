package completion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dileep-u-k/pmo-assistant/internal/schema"
)

// EnvelopeKind tells which response shape carried the payload.
type EnvelopeKind int

const (
	// EnvelopeResponses is the output[0].content[] shape where the payload is
	// the text of the element typed "output_text".
	EnvelopeResponses EnvelopeKind = iota + 1
	// EnvelopeChat is the choices[0].message.content shape.
	EnvelopeChat
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeResponses:
		return "responses"
	case EnvelopeChat:
		return "chat"
	}
	return "unknown"
}

const outputTextType = "output_text"

// Envelope is a decoded response body. Payload is the raw JSON of the
// payload: a JSON string holding the model's text, or a structured value.
type Envelope struct {
	Kind    EnvelopeKind
	Payload json.RawMessage
}

type rawEnvelope struct {
	Output []struct {
		Content json.RawMessage `json:"content"`
	} `json:"output"`
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type contentPart struct {
	Type string          `json:"type"`
	Text json.RawMessage `json:"text"`
}

// DecodeEnvelope recognizes the response shape. The responses shape wins when
// output[0].content is present; otherwise choices[0].message.content is used.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(body, &raw); err != nil {
		return Envelope{}, &ExtractionError{Reason: fmt.Sprintf("response body is not a JSON object: %v", err)}
	}

	if len(raw.Output) > 0 && present(raw.Output[0].Content) {
		var parts []contentPart
		if err := json.Unmarshal(raw.Output[0].Content, &parts); err != nil {
			return Envelope{}, &ExtractionError{Reason: "output[0].content is not a list"}
		}
		for _, part := range parts {
			if part.Type != outputTextType {
				continue
			}
			if !present(part.Text) {
				return Envelope{}, &ExtractionError{Reason: "output_text element has no text"}
			}
			return Envelope{Kind: EnvelopeResponses, Payload: part.Text}, nil
		}
		return Envelope{}, &ExtractionError{Reason: "no output_text element in output[0].content"}
	}

	if len(raw.Choices) > 0 && present(raw.Choices[0].Message.Content) {
		return Envelope{Kind: EnvelopeChat, Payload: raw.Choices[0].Message.Content}, nil
	}

	return Envelope{}, &ExtractionError{Reason: "unrecognized response structure"}
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

var errNotObject = errors.New("payload is not a JSON object")

// Parse turns the payload into a JSON object. Text payloads are parsed as
// JSON and never repaired; structured payloads are used as they are.
func (e Envelope) Parse() (map[string]any, error) {
	payload := bytes.TrimSpace(e.Payload)
	if len(payload) > 0 && payload[0] == '"' {
		var text string
		if err := json.Unmarshal(payload, &text); err != nil {
			return nil, &ParseError{Text: string(payload), Err: err}
		}
		return parseText(text)
	}

	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, &ParseError{Text: string(payload), Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{Text: string(payload), Err: errNotObject}
	}
	return obj, nil
}

func parseText(text string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, &ParseError{Text: text, Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{Text: text, Err: errNotObject}
	}
	return obj, nil
}

// Decode extracts, parses and fills a completions response body. Every
// property declared by output that the model left out or set to null comes
// back with its neutral default; everything else is returned unchanged.
func Decode(body []byte, output *schema.JSONSchema) (map[string]any, error) {
	env, err := DecodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	obj, err := env.Parse()
	if err != nil {
		return nil, err
	}
	if output != nil {
		filled, ok := output.Fill(obj).(map[string]any)
		if !ok {
			return nil, &ParseError{Text: string(env.Payload), Err: errNotObject}
		}
		obj = filled
	}
	return obj, nil
}
