package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MaxPageSize is the largest per_page value the API accepts.
const MaxPageSize = 100

// ValidatePageSize checks that a page size is within 1..MaxPageSize.
func ValidatePageSize(size int) error {
	if size < 1 || size > MaxPageSize {
		return fmt.Errorf("invalid page size: %d (must be between 1 and %d)", size, MaxPageSize)
	}
	return nil
}

// ValidateID rejects empty identifiers, dot segments and ones containing
// path separators.
func ValidateID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("id is required")
	}
	if id == "." || id == ".." || strings.ContainsAny(id, "/?#\\") {
		return fmt.Errorf("invalid id: %q", id)
	}
	return nil
}

// ParsePayload decodes a JSON object used as a create/update body.
func ParsePayload(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidPayload(errors.New("payload is empty"))
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, ErrInvalidPayload(err)
	}
	if payload == nil {
		return nil, ErrInvalidPayload(errors.New("payload must be a JSON object"))
	}
	return payload, nil
}
