// Package extraction turns vision model replies into page extractions,
// repairing the malformed JSON such replies often contain.
package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparseable is returned when a reply holds no recoverable JSON object.
var ErrUnparseable = errors.New("unparseable extraction")

type cutPoint struct {
	length int
	stack  string
}

// Repair extracts the first JSON object from text and fixes what models get
// wrong: markdown fences, prose around the object, raw control characters in
// strings, trailing commas and truncation.
func Repair(text string) (string, error) {
	s := stripFences(text)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object found", ErrUnparseable)
	}
	s = s[start:]

	var (
		out      strings.Builder
		stack    []byte
		cuts     []cutPoint
		inString bool
		escaped  bool
		complete bool
	)
	out.Grow(len(s) + 16)

scan:
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				out.WriteByte(ch)
			case ch == '\\':
				escaped = true
				out.WriteByte(ch)
			case ch == '"':
				inString = false
				out.WriteByte(ch)
			case ch < 0x20:
				out.WriteString(escapeControl(ch))
			default:
				out.WriteByte(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out.WriteByte(ch)
		case '{', '[':
			stack = append(stack, ch)
			out.WriteByte(ch)
			cuts = append(cuts, cutPoint{length: out.Len(), stack: string(stack)})
		case '}', ']':
			trimTrailingComma(&out)
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			out.WriteByte(ch)
			if len(stack) == 0 {
				complete = true
				break scan
			}
		case ',':
			cuts = append(cuts, cutPoint{length: out.Len(), stack: string(stack)})
			out.WriteByte(ch)
		default:
			out.WriteByte(ch)
		}
	}

	repaired := out.String()
	if complete {
		if json.Valid([]byte(repaired)) {
			return repaired, nil
		}
		return "", fmt.Errorf("%w: invalid JSON after repair", ErrUnparseable)
	}

	// Truncated reply: close what is open, then fall back to earlier cut
	// points until the document validates.
	candidate := strings.TrimRight(repaired, " \t\r\n")
	if inString {
		if escaped {
			candidate = strings.TrimSuffix(candidate, `\`)
		}
		candidate += `"`
	}
	candidate = strings.TrimRight(candidate, " \t\r\n")
	candidate = strings.TrimSuffix(candidate, ",")
	if strings.HasSuffix(candidate, ":") {
		candidate += "null"
	}
	if closed := candidate + closers(string(stack)); json.Valid([]byte(closed)) {
		return closed, nil
	}

	for i := len(cuts) - 1; i >= 0; i-- {
		c := cuts[i]
		body := strings.TrimRight(repaired[:c.length], " \t\r\n")
		body = strings.TrimSuffix(body, ",")
		if closed := body + closers(c.stack); json.Valid([]byte(closed)) {
			return closed, nil
		}
	}
	return "", fmt.Errorf("%w: truncated JSON could not be closed", ErrUnparseable)
}

func stripFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func escapeControl(ch byte) string {
	switch ch {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	default:
		return fmt.Sprintf(`\u%04x`, ch)
	}
}

func trimTrailingComma(b *strings.Builder) {
	s := b.String()
	trimmed := strings.TrimRight(s, " \t\r\n")
	if !strings.HasSuffix(trimmed, ",") {
		return
	}
	trimmed = strings.TrimSuffix(trimmed, ",")
	b.Reset()
	b.WriteString(trimmed)
}

func closers(stack string) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// ErrorContext locates a JSON syntax error in data, returning the line,
// column and a short excerpt around it for logs.
func ErrorContext(data []byte, err error) (line, column int, excerpt string) {
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return 0, 0, ""
	}

	offset := int(syntaxErr.Offset)
	line, column = 1, 1
	for i := 0; i < offset && i < len(data); i++ {
		if data[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}

	start := max(offset-40, 0)
	end := min(offset+40, len(data))
	if start > end {
		start = end
	}
	return line, column, string(data[start:end])
}
