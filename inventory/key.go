package inventory

import (
	"fmt"
	"strings"
)

// Key identifies a node by (database, code). Keys are comparable and can be
// used as map keys.
type Key struct {
	Database string
	Code     string
}

// K is shorthand for Key{Database: db, Code: code}.
func K(db, code string) Key { return Key{Database: db, Code: code} }

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k.Database == "" && k.Code == "" }

// Compare orders keys by database, then code.
func (k Key) Compare(o Key) int {
	if c := strings.Compare(k.Database, o.Database); c != 0 {
		return c
	}

	return strings.Compare(k.Code, o.Code)
}

// String formats k as a tuple, e.g. ('db', 'code'). ParseKey accepts the
// result.
func (k Key) String() string { return FormatTuple([]string{k.Database, k.Code}) }

// ParseKey parses a two-element tuple into a Key.
func ParseKey(s string) (Key, error) {
	parts, err := ParseTuple(s)
	if err != nil {
		return Key{}, err
	}
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}

	return Key{Database: parts[0], Code: parts[1]}, nil
}

// ParseTuple parses a parenthesized, comma-separated list of optionally
// quoted strings: ('air', 'urban air') or (air, urban air). Quoted elements
// may contain commas. A trailing comma is allowed.
func ParseTuple(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '(' && s[len(s)-1] == ')' || s[0] == '[' && s[len(s)-1] == ']') {
		s = s[1 : len(s)-1]
	} else if len(s) > 0 && (s[0] == '(' || s[0] == '[') {
		return nil, fmt.Errorf("%w: unbalanced brackets in %q", ErrInvalidKey, s)
	}
	out := []string{}
	i := 0
	for {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i >= len(s) {
			break
		}
		var elem string
		if q := s[i]; q == '\'' || q == '"' {
			var sb strings.Builder
			j := i + 1
			closed := false
			for j < len(s) {
				c := s[j]
				if c == '\\' && j+1 < len(s) {
					sb.WriteByte(s[j+1])
					j += 2
					continue
				}
				if c == q {
					closed = true
					j++
					break
				}
				sb.WriteByte(c)
				j++
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated quote in %q", ErrInvalidKey, s)
			}
			elem = sb.String()
			for j < len(s) && s[j] == ' ' {
				j++
			}
			if j < len(s) && s[j] != ',' {
				return nil, fmt.Errorf("%w: unexpected %q after quoted element", ErrInvalidKey, s[j])
			}
			i = j
		} else {
			j := strings.IndexByte(s[i:], ',')
			if j < 0 {
				j = len(s) - i
			}
			elem = strings.TrimSpace(s[i : i+j])
			i += j
		}
		out = append(out, elem)
		if i < len(s) && s[i] == ',' {
			i++
		}
	}

	return out, nil
}

// FormatTuple renders parts as a quoted tuple that ParseTuple reads back.
func FormatTuple(parts []string) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, p := range parts {
		if i > 0 {
			sb.WriteString(", ")
		}
		q := byte('\'')
		if strings.IndexByte(p, '\'') >= 0 {
			q = '"'
		}
		sb.WriteByte(q)
		for k := 0; k < len(p); k++ {
			if p[k] == q || p[k] == '\\' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(p[k])
		}
		sb.WriteByte(q)
	}
	if len(parts) == 1 {
		sb.WriteByte(',')
	}
	sb.WriteByte(')')

	return sb.String()
}
