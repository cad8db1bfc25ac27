package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const sampleCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0003> <0020>
<0011> <D835DC00>
endbfchar
2 beginbfrange
<0024> <0026> <0041>
<0030> <0031> [<0066006C> <00E9>]
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

func TestParseToUnicode(t *testing.T) {
	m := parseToUnicode([]byte(sampleCMap))
	require.NotNil(t, m)
	assert.Equal(t, 2, m.codeBytes)

	tests := []struct {
		code uint32
		want string
		ok   bool
	}{
		{0x0003, " ", true},
		{0x0011, "\U0001D400", true},
		{0x0024, "A", true},
		{0x0026, "C", true},
		{0x0030, "fl", true},
		{0x0031, "é", true},
		{0x0027, "", false},
		{0x0099, "", false},
	}
	for _, tt := range tests {
		got, ok := m.lookup(tt.code)
		assert.Equal(t, tt.ok, ok, "code %04X", tt.code)
		assert.Equal(t, tt.want, got, "code %04X", tt.code)
	}
}

func TestParseToUnicode_IdentityRange(t *testing.T) {
	m := parseToUnicode([]byte("1 begincodespacerange <0000> <FFFF> endcodespacerange\n" +
		"1 beginbfrange <0000> <FFFF> <0000> endbfrange"))

	got, ok := m.lookup(0x00DF)
	assert.True(t, ok)
	assert.Equal(t, "ß", got)
}

func TestFontDecoder_Decode(t *testing.T) {
	cmap := parseToUnicode([]byte(sampleCMap))

	tests := []struct {
		name string
		font *fontDecoder
		raw  []byte
		want string
	}{
		{"no font", nil, []byte("caf\xe9"), "café"},
		{"simple font", &fontDecoder{codeBytes: 1}, []byte("caf\xe9"), "café"},
		{"mac roman", &fontDecoder{codeBytes: 1, charmap: charmap.Macintosh}, []byte("caf\x8e"), "café"},
		{"two-byte with cmap", &fontDecoder{codeBytes: 2, cmap: cmap}, []byte{0, 0x24, 0, 0x03, 0, 0x30}, "A fl"},
		{"two-byte identity", &fontDecoder{codeBytes: 2}, []byte{0, 'H', 0, 'i', 0, ' ', 0, 0xDF}, "Hi ß"},
		{"two-byte odd tail", &fontDecoder{codeBytes: 2}, []byte{0, 'o', 0, 'k', 0}, "ok"},
		{"one-byte cmap with fallback", &fontDecoder{codeBytes: 1, cmap: &toUnicodeCMap{
			chars: map[uint32]string{0x01: "ﬁ"},
		}}, []byte("\x01nal"), "ﬁnal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.font.decode(tt.raw))
		})
	}
}

func TestTextRuns_FontSelection(t *testing.T) {
	fonts := map[string]*fontDecoder{
		"F1": {codeBytes: 2},
	}
	stream := `BT /F1 12 Tf (\000H\000i) Tj
q /F2 9 Tf (plain) Tj Q
(\000H\000o) Tj
/F9 10 Tf (unknown) Tj ET`

	assert.Equal(t, []string{"Hi", "plain", "Ho", "unknown"}, textRuns([]byte(stream), fonts))
}
