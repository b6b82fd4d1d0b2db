package extractor

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// fallbackEncodings is tried in order when the content is not valid UTF-8.
var fallbackEncodings = []encoding.Encoding{
	charmap.ISO8859_1,
	charmap.Windows1252,
}

// TextExtractor decodes plain text (txt, md). UTF-8 first, then the fixed
// fallback encoding chain.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	text, err := decodeText(data)
	if err != nil {
		return "", extractionFailed(FormatTXT, err)
	}
	return text, nil
}

func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	var lastErr error
	for _, enc := range fallbackEncodings {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			lastErr = err
			continue
		}
		return string(decoded), nil
	}

	return "", lastErr
}

// RTFExtractor decodes RTF content and strips control words, keeping only the
// visible text.
type RTFExtractor struct{}

func NewRTFExtractor() *RTFExtractor {
	return &RTFExtractor{}
}

func (e *RTFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	raw, err := decodeText(data)
	if err != nil {
		return "", extractionFailed(FormatRTF, err)
	}
	return stripRTF(raw), nil
}

// stripRTF removes RTF control words, groups and the header, leaving plain
// text. Escaped characters \\, \{ and \} are preserved.
func stripRTF(s string) string {
	var sb strings.Builder
	runes := []rune(s)
	i := 0
	depth := 0

	for i < len(runes) {
		r := runes[i]
		switch r {
		case '{':
			depth++
			i++
		case '}':
			if depth > 0 {
				depth--
			}
			i++
		case '\\':
			if i+1 < len(runes) {
				next := runes[i+1]
				if next == '\\' || next == '{' || next == '}' {
					sb.WriteRune(next)
					i += 2
					continue
				}
				if next == 'p' && strings.HasPrefix(string(runes[i:]), "\\par") {
					sb.WriteRune('\n')
				}
			}
			// Skip the control word and its numeric argument.
			i++
			for i < len(runes) && (isRTFWordChar(runes[i]) || runes[i] == '-') {
				i++
			}
			// A single trailing space terminates the control word.
			if i < len(runes) && runes[i] == ' ' {
				i++
			}
		default:
			if r != '\r' && r != '\n' {
				sb.WriteRune(r)
			}
			i++
		}
	}

	return strings.TrimSpace(sb.String())
}

func isRTFWordChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
