package command

import (
	"errors"
	"strings"
)

// primaryToken extracts the operation token: everything before the
// first space or comma, lowercased.
func primaryToken(line string) string {
	end := len(line)
	if i := strings.IndexAny(line, " ,"); i >= 0 {
		end = i
	}
	return strings.ToLower(line[:end])
}

// splitFields splits a command line on commas that sit outside double
// quotes. Fields are whitespace-trimmed but quotes are preserved for
// unquote to handle.
func splitFields(line string) ([]string, error) {
	var fields []string
	start := 0
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if inQuote && i+1 < len(line) {
				i++
			}
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				fields = append(fields, strings.TrimSpace(line[start:i]))
				start = i + 1
			}
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	return append(fields, strings.TrimSpace(line[start:])), nil
}

// unquote strips surrounding double quotes, if present, and unescapes
// embedded \" and \\ sequences.
func unquote(field string) (string, error) {
	if len(field) < 2 || field[0] != '"' {
		return field, nil
	}
	if field[len(field)-1] != '"' {
		return "", errors.New("unterminated quote")
	}
	inner := field[1 : len(field)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String(), nil
}

// unquoteAll applies unquote over every field.
func unquoteAll(fields []string) ([]string, error) {
	out := make([]string, len(fields))
	for i, f := range fields {
		v, err := unquote(f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
