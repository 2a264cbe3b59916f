package bedrock

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smartshop/backend/internal/domain"
)

// ExtractJSON locates the JSON payload inside free model text.
// The payload starts at the first '[' or '{' and ends at the last matching closer.
// found is false when the text has no opening delimiter at all.
func ExtractJSON(text string) (payload string, found bool, err error) {
	start := strings.IndexAny(text, "[{")
	if start == -1 {
		return "", false, nil
	}

	closer := byte(']')
	if text[start] == '{' {
		closer = '}'
	}
	return cut(text, start, closer)
}

// ExtractJSONArray locates an array payload, from the first '[' to the last ']'.
// Braces outside that span, such as a wrapping object or prose, are ignored.
func ExtractJSONArray(text string) (payload string, found bool, err error) {
	start := strings.IndexByte(text, '[')
	if start == -1 {
		return "", false, nil
	}
	return cut(text, start, ']')
}

func cut(text string, start int, closer byte) (string, bool, error) {
	end := strings.LastIndexByte(text, closer)
	if end < start {
		return "", true, fmt.Errorf("%w: unterminated %q payload", domain.ErrMalformedResponse, text[start])
	}
	return text[start : end+1], true, nil
}

// DecodeJSON extracts and decodes the JSON payload of a model reply into T.
// Text without any payload decodes to the zero value of T.
func DecodeJSON[T any](text string) (T, error) {
	var out T

	payload, found, err := ExtractJSON(text)
	if err != nil || !found {
		return out, err
	}
	return out, unmarshalPayload(payload, &out)
}

// DecodeJSONArray extracts and decodes an array reply into a slice of T.
// Text without any array decodes to an empty slice.
func DecodeJSONArray[T any](text string) ([]T, error) {
	out := []T{}

	payload, found, err := ExtractJSONArray(text)
	if err != nil || !found {
		return out, err
	}
	if err := unmarshalPayload(payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func unmarshalPayload(payload string, out any) error {
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	return nil
}
