package lexer

import "strings"

// Decode converts the raw text of a STRING token (quotes included) into its
// logical value: strip the surrounding quotes, expand backslash escapes,
// collapse doubled single quotes.
//
// raw must begin and end with an unescaped single quote, as produced by
// Lexer.Next for a String token.
func Decode(raw string) string {
	if len(raw) < 2 {
		return ""
	}
	body := raw[1 : len(raw)-1]

	var out strings.Builder
	out.Grow(len(body))

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			i++
			out.WriteByte(decodeEscape(body, &i))
		case c == '\'' && i+1 < len(body) && body[i+1] == '\'':
			out.WriteByte('\'')
			i++
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// decodeEscape handles the byte following a backslash. i is positioned at
// that byte on entry and is advanced past any additional octal digits
// consumed.
func decodeEscape(body string, i *int) byte {
	c := body[*i]
	switch c {
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case '0', '1', '2', '3', '4', '5', '6', '7':
		val := int(c - '0')
		digits := 1
		for digits < 3 && *i+1 < len(body) && isOctalDigit(body[*i+1]) {
			*i++
			val = val*8 + int(body[*i]-'0')
			digits++
		}
		return byte(val)
	default:
		return c
	}
}

func isOctalDigit(c byte) bool {
	return c >= '0' && c <= '7'
}

// EncodeQuoted renders s as a single-quoted literal using the same escapes
// Decode understands: backslash, single quote, and newline. Other bytes are
// emitted as-is, including arbitrary high bytes, so the pair (EncodeQuoted,
// Decode) round-trips any byte sequence not containing NUL.
func EncodeQuoted(s string) string {
	var out strings.Builder
	out.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			out.WriteString(`\\`)
		case '\'':
			out.WriteString(`\'`)
		case '\n':
			out.WriteString(`\n`)
		default:
			out.WriteByte(s[i])
		}
	}
	out.WriteByte('\'')
	return out.String()
}
