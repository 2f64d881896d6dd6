package renderer

// Fill replaces every #NAME# sentinel in skeleton whose NAME is a key of
// values. The scan is a single left-to-right pass: inserted values are never
// rescanned, and anything that is not a known sentinel (LaTeX parameters
// such as #1, stray '#' characters, unknown names) is copied unchanged.
func Fill(skeleton string, values map[string]string) string {
	out := make([]byte, 0, len(skeleton)+64)

	for i := 0; i < len(skeleton); {
		c := skeleton[i]
		if c != '#' {
			out = append(out, c)
			i++
			continue
		}

		end := i + 1
		for end < len(skeleton) && isSentinelByte(skeleton[end], end == i+1) {
			end++
		}
		if end > i+1 && end < len(skeleton) && skeleton[end] == '#' {
			if v, ok := values[skeleton[i+1:end]]; ok {
				out = append(out, v...)
				i = end + 1
				continue
			}
		}

		out = append(out, '#')
		i++
	}
	return string(out)
}

// isSentinelByte reports whether c may appear in a sentinel name. Names are
// upper-case letters and underscores, starting with a letter.
func isSentinelByte(c byte, first bool) bool {
	if c >= 'A' && c <= 'Z' {
		return true
	}
	return c == '_' && !first
}
