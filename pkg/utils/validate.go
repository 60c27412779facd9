package utils

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ValidateIdentifier checks that an id taken from user input (task id, room
// id, webhook name) is non-empty and cannot be used as a path.
func ValidateIdentifier(identifier string) error {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return errors.New("identifier is required and must be a non-empty string")
	}
	if strings.ContainsAny(trimmed, "/\\") || strings.Contains(trimmed, "..") {
		return errors.New("identifier must not contain path separators or '..'")
	}
	return nil
}

// ParseEmailList splits a comma, semicolon or newline separated list of
// addresses. Blank entries are skipped and duplicates dropped, keeping the
// first spelling.
func ParseEmailList(s string) ([]string, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r'
	})

	var out []string
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		addr, err := mail.ParseAddress(f)
		if err != nil {
			return nil, fmt.Errorf("invalid participant email %q", f)
		}
		key := strings.ToLower(addr.Address)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr.Address)
	}
	return out, nil
}
