package extractor

import (
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/charmap"
)

// fontDecoder turns the bytes of a shown string into text for one font.
// Composite (Type0) fonts use two-byte codes. A ToUnicode CMap takes
// precedence over the font encoding.
type fontDecoder struct {
	codeBytes int
	cmap      *toUnicodeCMap
	charmap   *charmap.Charmap
}

func (d *fontDecoder) decode(raw []byte) string {
	if d == nil {
		return decodePDFText(raw)
	}
	if d.codeBytes == 1 && d.cmap == nil {
		return d.decodeSimple(raw)
	}

	var sb strings.Builder
	for i := 0; i+d.codeBytes <= len(raw); i += d.codeBytes {
		code := codeOf(raw[i : i+d.codeBytes])
		if s, ok := d.cmap.lookup(code); ok {
			sb.WriteString(s)
			continue
		}
		if d.codeBytes == 1 {
			sb.WriteString(d.decodeSimple(raw[i : i+1]))
			continue
		}
		// Identity-H without a usable CMap: writers that map CIDs to Unicode
		// (fpdf, tFPDF) make the code the code point.
		if r := rune(code); unicode.IsPrint(r) || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (d *fontDecoder) decodeSimple(raw []byte) string {
	if d.charmap == nil {
		return decodePDFText(raw)
	}
	s, err := d.charmap.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

// pageFonts resolves the fonts of a page's resources by resource name.
// Decoders are shared across pages through cache, keyed by object number.
func pageFonts(ctx *model.Context, pageNr int, cache map[int]*fontDecoder) map[string]*fontDecoder {
	pageDict, _, inh, err := ctx.PageDict(pageNr, true)
	if err != nil {
		return nil
	}

	var resources types.Dict
	if inh != nil && inh.Resources != nil {
		resources = inh.Resources
	} else if o, found := pageDict.Find("Resources"); found {
		if resources, err = ctx.DereferenceDict(o); err != nil {
			return nil
		}
	}
	if resources == nil {
		return nil
	}

	o, found := resources.Find("Font")
	if !found {
		return nil
	}
	fontDict, err := ctx.DereferenceDict(o)
	if err != nil || fontDict == nil {
		return nil
	}

	fonts := make(map[string]*fontDecoder, len(fontDict))
	for name, obj := range fontDict {
		ref, isRef := obj.(types.IndirectRef)
		if isRef {
			if d, ok := cache[ref.ObjectNumber.Value()]; ok {
				fonts[name] = d
				continue
			}
		}
		d := loadFont(ctx, obj)
		if isRef {
			cache[ref.ObjectNumber.Value()] = d
		}
		fonts[name] = d
	}
	return fonts
}

func loadFont(ctx *model.Context, obj types.Object) *fontDecoder {
	font, err := ctx.DereferenceDict(obj)
	if err != nil || font == nil {
		return nil
	}

	d := &fontDecoder{codeBytes: 1}
	if st := font.NameEntry("Subtype"); st != nil && *st == "Type0" {
		d.codeBytes = 2
	}
	if enc := font.NameEntry("Encoding"); enc != nil && *enc == "MacRomanEncoding" {
		d.charmap = charmap.Macintosh
	}

	if o, found := font.Find("ToUnicode"); found {
		if o, err = ctx.Dereference(o); err == nil {
			if sd, ok := o.(types.StreamDict); ok {
				if sd.Content == nil {
					err = sd.Decode()
				}
				if err == nil && len(sd.Content) > 0 {
					d.cmap = parseToUnicode(sd.Content)
				}
			}
		}
	}

	if d.codeBytes == 2 && d.cmap != nil && d.cmap.codeBytes > 0 {
		d.codeBytes = d.cmap.codeBytes
	}
	return d
}

type cmapRange struct {
	lo, hi uint32
	base   []rune   // destination of lo; the last rune advances with the code
	list   []string // explicit destinations, indexed by code-lo
}

// toUnicodeCMap holds the bfchar and bfrange mappings of a ToUnicode CMap.
type toUnicodeCMap struct {
	codeBytes int
	chars     map[uint32]string
	ranges    []cmapRange
}

func (m *toUnicodeCMap) lookup(code uint32) (string, bool) {
	if m == nil {
		return "", false
	}
	if s, ok := m.chars[code]; ok {
		return s, true
	}
	for _, r := range m.ranges {
		if code < r.lo || code > r.hi {
			continue
		}
		off := int(code - r.lo)
		if r.list != nil {
			if off < len(r.list) {
				return r.list[off], true
			}
			return "", false
		}
		if len(r.base) == 0 {
			return "", false
		}
		runes := append([]rune(nil), r.base...)
		runes[len(runes)-1] += rune(off)
		return string(runes), true
	}
	return "", false
}

type cmapToken struct {
	hex  []byte
	word string
}

// parseToUnicode reads the codespace, bfchar and bfrange sections of a CMap.
// Anything else in the program is skipped.
func parseToUnicode(data []byte) *toUnicodeCMap {
	toks := cmapTokens(data)
	m := &toUnicodeCMap{chars: make(map[uint32]string)}

	for i := 0; i < len(toks); i++ {
		switch toks[i].word {
		case "begincodespacerange":
			for i++; i < len(toks) && toks[i].word != "endcodespacerange"; i++ {
				if toks[i].hex != nil && m.codeBytes == 0 {
					m.codeBytes = len(toks[i].hex)
				}
			}

		case "beginbfchar":
			for i++; i+1 < len(toks) && toks[i].word != "endbfchar"; i += 2 {
				if toks[i].hex == nil || toks[i+1].hex == nil {
					break
				}
				m.chars[codeOf(toks[i].hex)] = utf16BE(toks[i+1].hex)
			}

		case "beginbfrange":
			for i++; i+2 < len(toks) && toks[i].word != "endbfrange"; {
				if toks[i].hex == nil || toks[i+1].hex == nil {
					break
				}
				r := cmapRange{lo: codeOf(toks[i].hex), hi: codeOf(toks[i+1].hex)}
				i += 2
				if toks[i].word == "[" {
					r.list = []string{}
					for i++; i < len(toks) && toks[i].word != "]"; i++ {
						r.list = append(r.list, utf16BE(toks[i].hex))
					}
					i++
				} else {
					r.base = []rune(utf16BE(toks[i].hex))
					i++
				}
				if r.hi >= r.lo {
					m.ranges = append(m.ranges, r)
				}
			}
		}
	}
	return m
}

func cmapTokens(data []byte) []cmapToken {
	var toks []cmapToken
	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '<' && i+1 < len(data) && data[i+1] == '<':
			toks = append(toks, cmapToken{word: "<<"})
			i += 2
		case c == '>' && i+1 < len(data) && data[i+1] == '>':
			toks = append(toks, cmapToken{word: ">>"})
			i += 2
		case c == '<':
			raw, n := readHex(data[i:])
			if raw == nil {
				raw = []byte{}
			}
			toks = append(toks, cmapToken{hex: raw})
			i += n
		case c == '(':
			_, n := readLiteral(data[i:])
			i += n
		case c == '[' || c == ']':
			toks = append(toks, cmapToken{word: string(c)})
			i++
		default:
			start := i
			i++
			for i < len(data) && !isPDFDelimiter(data[i]) && !isPDFSpace(data[i]) {
				i++
			}
			toks = append(toks, cmapToken{word: string(data[start:i])})
		}
	}
	return toks
}

func codeOf(b []byte) uint32 {
	var code uint32
	for _, c := range b {
		code = code<<8 | uint32(c)
	}
	return code
}

func utf16BE(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}
