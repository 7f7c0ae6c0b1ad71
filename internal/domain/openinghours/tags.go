package openinghours

import "strings"

// ExtractRule returns the opening_hours value from an hstore-style tag blob
// such as `"opening_hours"=>"Mo-Fr 09:00-17:00","wheelchair"=>"yes"`.
func ExtractRule(rawTags string) (string, bool) {
	v, ok := ParseTags(rawTags)[RuleKey]
	return v, ok
}

// ParseTags decodes an hstore-style blob into a map. Keys and values may be
// quoted or bare; quoted strings honour backslash escapes. Parsing stops at
// the first malformed pair and keeps what was read so far.
func ParseTags(rawTags string) map[string]string {
	tags := map[string]string{}
	s := rawTags
	for {
		s = strings.TrimLeft(s, " ,\t\n")
		if s == "" {
			return tags
		}

		key, rest, ok := readToken(s, "=>")
		if !ok {
			return tags
		}
		rest = strings.TrimLeft(rest, " \t")
		if !strings.HasPrefix(rest, "=>") {
			return tags
		}
		rest = strings.TrimLeft(rest[2:], " \t")

		val, rest, ok := readToken(rest, ",")
		if !ok {
			return tags
		}
		tags[strings.TrimSpace(key)] = val
		s = rest
	}
}

// readToken reads a quoted string, or a bare run up to stop.
func readToken(s, stop string) (token, rest string, ok bool) {
	if !strings.HasPrefix(s, `"`) {
		i := strings.Index(s, stop)
		if i < 0 {
			if stop == "=>" {
				return "", s, false
			}
			return strings.TrimSpace(s), "", true
		}
		return strings.TrimSpace(s[:i]), s[i:], true
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			return b.String(), s[i+1:], true
		default:
			b.WriteByte(s[i])
		}
	}
	return "", s, false
}
