package engine

// kwPrefix marks keyword names rewritten by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites script source into something zygomys accepts:
//
//   - :keyword becomes the string literal "__kw_keyword", so keywords never
//     collide with user definitions.
//   - kebab-case names become snake_case (mesh-stats -> mesh_stats), since
//     zygomys reads a hyphen as subtraction. A hyphen is only rewritten when
//     it sits between an identifier character and a letter.
//   - ; comments become // comments.
//
// String literals, both quoted and backticked, pass through untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"':
			j := skipQuoted(b, i)
			out = append(out, b[i:j]...)
			i = j
		case c == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			out = append(out, b[i:j]...)
			i = j
		case c == ';':
			for i < len(b) && b[i] == ';' {
				i++
			}
			out = append(out, '/', '/')
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}
		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2
		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j
		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipQuoted returns the index just past the double-quoted literal starting
// at i, honoring backslash escapes. An unterminated literal runs to the end.
func skipQuoted(b []byte, i int) int {
	for j := i + 1; j < len(b); j++ {
		switch b[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(b)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
