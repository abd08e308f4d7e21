package main

// Wrap wraps text to the given width while preserving the original
// spacing between tokens and keeping newlines intact. It breaks only at
// whitespace and splits tokens longer than width. Tabs count as one
// column.
func Wrap(text string, width int) string {
	if width <= 1 || text == "" {
		return text
	}

	var out []rune
	lineLen := 0

	newline := func() {
		out = append(out, '\n')
		lineLen = 0
	}
	write := func(rs []rune) {
		out = append(out, rs...)
		lineLen += len(rs)
	}

	for _, t := range tokenize(text) {
		if t.kind == tokenNewline {
			newline()
			continue
		}

		rs := []rune(t.text)
		if lineLen+len(rs) <= width {
			// no leading spaces on a fresh line
			if !(lineLen == 0 && t.kind == tokenSpace) {
				write(rs)
			}
			continue
		}

		if t.kind == tokenSpace {
			newline()
			continue
		}
		if lineLen > 0 {
			newline()
		}
		for start := 0; start < len(rs); {
			end := min(start+width, len(rs))
			write(rs[start:end])
			start = end
			if start < len(rs) {
				newline()
			}
		}
	}

	return string(out)
}

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenSpace
	tokenNewline
)

type token struct {
	text string
	kind tokenKind
}

// tokenize splits s into runs of spaces/tabs, runs of other characters
// and single newlines.
func tokenize(s string) []token {
	var (
		toks []token
		cur  []rune
		kind = tokenNewline // nothing buffered
	)
	flush := func() {
		if len(cur) > 0 {
			toks = append(toks, token{text: string(cur), kind: kind})
			cur = cur[:0]
		}
	}

	for _, r := range s {
		switch r {
		case '\n':
			flush()
			toks = append(toks, token{text: "\n", kind: tokenNewline})
			kind = tokenNewline
		case ' ', '\t':
			if kind != tokenSpace {
				flush()
				kind = tokenSpace
			}
			cur = append(cur, r)
		default:
			if kind != tokenWord {
				flush()
				kind = tokenWord
			}
			cur = append(cur, r)
		}
	}
	flush()
	return toks
}
