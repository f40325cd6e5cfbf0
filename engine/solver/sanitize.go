package solver

import "bytes"

var nonFinite = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// Sanitize rewrites the bare NaN, Infinity and -Infinity tokens some solvers
// emit into null. Occurrences inside strings are left alone.
func Sanitize(b []byte) []byte {
	if !bytes.Contains(b, []byte("NaN")) && !bytes.Contains(b, []byte("Infinity")) {
		return b
	}
	out := make([]byte, 0, len(b))
	inString, escaped := false, false
	for i := 0; i < len(b); i++ {
		c := b[i]
		if inString {
			out = append(out, c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out = append(out, c)
			continue
		}
		if tok := tokenAt(b, i); tok != nil {
			out = append(out, "null"...)
			i += len(tok) - 1
			continue
		}
		out = append(out, c)
	}
	return out
}

func tokenAt(b []byte, i int) []byte {
	for _, tok := range nonFinite {
		if !bytes.HasPrefix(b[i:], tok) {
			continue
		}
		end := i + len(tok)
		if end < len(b) && isIdent(b[end]) {
			continue
		}
		if i > 0 && isIdent(b[i-1]) {
			continue
		}
		return tok
	}
	return nil
}

func isIdent(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
