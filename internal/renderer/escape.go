package renderer

import "strings"

var textEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`%`, `\%`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`_`, `\_`,
	`^`, `\^{}`,
	`~`, `\~{}`,
)

// EscapeText makes user text safe to place in a LaTeX text context. Inline
// math written as #$...$ is kept verbatim as $...$ when its braces balance
// and it has no unescaped '%'. Any other span, and an unterminated #$, is
// escaped like ordinary text.
func EscapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for {
		start := strings.Index(s, "#$")
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+2:], '$')
		if end < 0 {
			break
		}
		end += start + 2

		b.WriteString(textEscaper.Replace(s[:start]))
		if math := s[start+2 : end]; safeMath(math) {
			b.WriteString("$" + math + "$")
		} else {
			b.WriteString(textEscaper.Replace(s[start : end+1]))
		}
		s = s[end+1:]
	}

	b.WriteString(textEscaper.Replace(s))
	return b.String()
}

// safeMath reports whether s can be emitted raw: braces balance and no '%'
// starts a comment. A backslash escapes the byte after it.
func safeMath(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 == len(s) {
				return false
			}
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return false
			}
		case '%':
			return false
		}
	}
	return depth == 0
}

var pathEscaper = strings.NewReplacer(`\`, `/`, `%`, `\%`, `#`, `\#`)

// EscapePath prepares a file path for \includegraphics. Backslash
// separators become '/'. ok is false when the path's braces do not balance
// and it cannot be used as an argument.
func EscapePath(path string) (string, bool) {
	depth := 0
	for _, c := range path {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return "", false
			}
		}
	}
	if depth != 0 {
		return "", false
	}
	return pathEscaper.Replace(path), true
}
