package relaydef

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CoerceToStructured normalizes a field that the relay may send either as structured JSON or
// as a JSON string containing the encoded value. A string is decoded once and its contents
// must themselves be valid JSON; any other value is returned as is. Missing or null input
// returns nil.
func CoerceToStructured(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '"' {
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("invalid JSON value: %s", truncateForError(trimmed))
		}
		return trimmed, nil
	}
	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, err
	}
	innerBytes := bytes.TrimSpace([]byte(inner))
	if !json.Valid(innerBytes) {
		return nil, fmt.Errorf("string-encoded field is not JSON: %s", truncateForError(innerBytes))
	}
	return innerBytes, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func truncateForError(data []byte) string {
	const maxLen = 80
	if len(data) > maxLen {
		return string(data[:maxLen]) + "..."
	}
	return string(data)
}
