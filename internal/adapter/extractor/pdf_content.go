package extractor

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// wordGapKerning is the TJ displacement (thousandths of an em) above which a
// space is inserted between two glyph strings of the same run.
const wordGapKerning = 200

// textRuns scans a decoded page content stream and returns the strings shown
// by the text operators Tj, TJ, ' and ", in stream order. Strings are decoded
// with the font selected by the last Tf, looked up in fonts; unknown fonts
// fall back to decodePDFText.
func textRuns(data []byte, fonts map[string]*fontDecoder) []string {
	var (
		runs     []string
		operands []string
		inArray  bool
		array    strings.Builder
		lastName string
		font     *fontDecoder
		saved    []*fontDecoder
	)

	push := func(s string) {
		if inArray {
			array.WriteString(s)
			return
		}
		operands = append(operands, s)
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++

		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}

		case c == '(':
			raw, n := readLiteral(data[i:])
			push(font.decode(raw))
			i += n

		case c == '<':
			if i+1 < len(data) && data[i+1] == '<' {
				i += 2
				continue
			}
			raw, n := readHex(data[i:])
			push(font.decode(raw))
			i += n

		case c == '[':
			inArray = true
			array.Reset()
			i++

		case c == ']':
			if inArray {
				inArray = false
				operands = append(operands, array.String())
			}
			i++

		case c == '/':
			i++
			start := i
			for i < len(data) && !isPDFDelimiter(data[i]) && !isPDFSpace(data[i]) {
				i++
			}
			if !inArray {
				lastName = string(data[start:i])
			}

		case c == '>' || c == ')' || c == '{' || c == '}':
			i++

		case isNumberStart(c):
			start := i
			i++
			for i < len(data) && (isDigit(data[i]) || data[i] == '.') {
				i++
			}
			if inArray {
				v, err := strconv.ParseFloat(string(data[start:i]), 64)
				if err == nil && v <= -wordGapKerning {
					array.WriteByte(' ')
				}
			}

		default:
			start := i
			if c == '\'' || c == '"' {
				i++
			} else {
				for i < len(data) && !isPDFDelimiter(data[i]) && !isPDFSpace(data[i]) {
					i++
				}
			}
			if i == start {
				i++
				continue
			}

			switch string(data[start:i]) {
			case "Tj", "TJ", "'", "\"":
				if len(operands) > 0 {
					runs = append(runs, operands[len(operands)-1])
				}
			case "Tf":
				font = fonts[lastName]
			case "q":
				saved = append(saved, font)
			case "Q":
				if n := len(saved); n > 0 {
					font = saved[n-1]
					saved = saved[:n-1]
				}
			case "ID":
				i = skipInlineImage(data, i)
			}
			operands = operands[:0]
			lastName = ""
		}
	}

	return runs
}

// readLiteral reads a parenthesised string starting at data[0] == '('.
// It returns the unescaped bytes and the number of input bytes consumed.
func readLiteral(data []byte) ([]byte, int) {
	var out bytes.Buffer
	depth := 0
	i := 0
	for i < len(data) {
		c := data[i]
		switch c {
		case '(':
			if depth > 0 {
				out.WriteByte(c)
			}
			depth++
			i++
		case ')':
			depth--
			i++
			if depth == 0 {
				return out.Bytes(), i
			}
			out.WriteByte(c)
		case '\\':
			i++
			if i >= len(data) {
				return out.Bytes(), i
			}
			e := data[i]
			switch e {
			case 'n':
				out.WriteByte('\n')
				i++
			case 'r':
				out.WriteByte('\r')
				i++
			case 't':
				out.WriteByte('\t')
				i++
			case 'b':
				out.WriteByte('\b')
				i++
			case 'f':
				out.WriteByte('\f')
				i++
			case '\r':
				// line continuation
				i++
				if i < len(data) && data[i] == '\n' {
					i++
				}
			case '\n':
				i++
			default:
				if e >= '0' && e <= '7' {
					val := 0
					for n := 0; n < 3 && i < len(data) && data[i] >= '0' && data[i] <= '7'; n++ {
						val = val*8 + int(data[i]-'0')
						i++
					}
					out.WriteByte(byte(val))
				} else {
					out.WriteByte(e)
					i++
				}
			}
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.Bytes(), i
}

// readHex reads a hexadecimal string starting at data[0] == '<'.
func readHex(data []byte) ([]byte, int) {
	var (
		out  []byte
		hi   byte
		half bool
	)
	i := 1
	for ; i < len(data); i++ {
		c := data[i]
		if c == '>' {
			i++
			break
		}
		v, ok := hexValue(c)
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
			half = false
		} else {
			hi = v
			half = true
		}
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, i
}

// decodePDFText converts string bytes to UTF-8. UTF-16BE strings carry a
// byte order mark; everything else is read as Windows-1252, which covers the
// standard simple-font encodings for printable text.
func decodePDFText(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		s, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		if err == nil {
			return string(s)
		}
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

// skipInlineImage advances past inline image data up to and including EI.
func skipInlineImage(data []byte, i int) int {
	for ; i+2 <= len(data); i++ {
		if data[i] == 'E' && data[i+1] == 'I' &&
			i > 0 && isPDFSpace(data[i-1]) &&
			(i+2 == len(data) || isPDFSpace(data[i+2]) || isPDFDelimiter(data[i+2])) {
			return i + 2
		}
	}
	return len(data)
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNumberStart(c byte) bool {
	return isDigit(c) || c == '-' || c == '+' || c == '.'
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
