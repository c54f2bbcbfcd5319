// Package dimensions converts dimension mappings to and from their canonical
// signature, the string that partitions result groups.
//
// A signature looks like {country=us,device=mobile}: keys are sorted and the
// characters \ { } = , are backslash-escaped inside keys and values, so two
// different mappings never share a signature.
package dimensions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mmynk/resultgroups/internal/errors"
)

const specials = `\{}=,`

// Map is a dimension-name to dimension-value mapping.
type Map map[string]string

// String returns the canonical signature of m. Maps that can't be
// canonicalized (empty key) fall back to Go's map formatting.
func (m Map) String() string {
	sig, err := Canonicalize(m)
	if err != nil {
		return fmt.Sprintf("%v", map[string]string(m))
	}
	return sig
}

// Clone returns a copy of m. The copy is never nil.
func (m Map) Clone() Map {
	c := make(Map, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Canonicalize returns the signature for m. A nil or empty map yields "{}".
func Canonicalize(m Map) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == "" {
			return "", errors.NewInvalidDimensionKey("dimension name must not be empty")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		writeEscaped(&b, k)
		b.WriteByte('=')
		writeEscaped(&b, m[k])
	}
	b.WriteByte('}')
	return b.String(), nil
}

// Parse is the inverse of Canonicalize. It accepts entries in any order, and
// an unescaped = inside a value since only the first one separates.
func Parse(sig string) (Map, error) {
	if len(sig) < 2 || sig[0] != '{' || sig[len(sig)-1] != '}' {
		return nil, errors.NewInvalidDimensionKey(fmt.Sprintf("signature %q is not enclosed in braces", sig))
	}
	body := sig[1 : len(sig)-1]
	m := Map{}
	if body == "" {
		return m, nil
	}

	var (
		buf     strings.Builder
		key     string
		haveKey bool
	)
	flush := func() error {
		if !haveKey {
			return errors.NewInvalidDimensionKey(fmt.Sprintf("entry %q in %q has no '='", buf.String(), sig))
		}
		if key == "" {
			return errors.NewInvalidDimensionKey(fmt.Sprintf("empty dimension name in %q", sig))
		}
		if _, dup := m[key]; dup {
			return errors.NewInvalidDimensionKey(fmt.Sprintf("duplicate dimension %q in %q", key, sig))
		}
		m[key] = buf.String()
		buf.Reset()
		key, haveKey = "", false
		return nil
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\':
			if i+1 == len(body) {
				return nil, errors.NewInvalidDimensionKey(fmt.Sprintf("dangling escape in %q", sig))
			}
			i++
			buf.WriteByte(body[i])
		case c == '=' && !haveKey:
			key = buf.String()
			buf.Reset()
			haveKey = true
		case c == '=':
			buf.WriteByte(c)
		case c == ',':
			if err := flush(); err != nil {
				return nil, err
			}
		case strings.IndexByte(specials, c) >= 0:
			return nil, errors.NewInvalidDimensionKey(fmt.Sprintf("unescaped %q in %q", c, sig))
		default:
			buf.WriteByte(c)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return m, nil
}

// Normalize rewrites a caller-supplied signature into canonical form so it
// can be compared with stored signatures.
func Normalize(sig string) (string, error) {
	m, err := Parse(sig)
	if err != nil {
		return "", err
	}
	return Canonicalize(m)
}

// ParsePairs builds a Map from "name=value" strings, as given on a command
// line. Only the first '=' separates name from value.
func ParsePairs(pairs []string) (Map, error) {
	m := make(Map, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, errors.NewInvalidDimensionKey(fmt.Sprintf("dimension %q is not of the form name=value", p))
		}
		if k == "" {
			return nil, errors.NewInvalidDimensionKey(fmt.Sprintf("dimension %q has an empty name", p))
		}
		m[k] = v
	}
	return m, nil
}

func writeEscaped(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(specials, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
}
