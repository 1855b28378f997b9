package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+15551234567", NormalizePhone(" +1 (555) 123-4567 "))
	assert.Equal(t, "15551234567", NormalizePhone("1.555.123.4567"))
	assert.Equal(t, "", NormalizePhone("   "))
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+*******4567", MaskPhone("+15551234567"))
	assert.Equal(t, "****", MaskPhone("1234"))
	assert.Equal(t, "+1234", MaskPhone("+1234"))
}

func TestRedactPhones(t *testing.T) {
	got := RedactPhones("call me at +1 555 123 4567 after 2015")
	assert.NotContains(t, got, "555")
	assert.Contains(t, got, "2015")
}

func TestSummary(t *testing.T) {
	s := "Landmark judgment clarifying mens rea standards for aggravated assault"
	got := Summary(s, 20)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len(strings.TrimSuffix(got, "…")), 20)
	assert.Equal(t, "short", Summary("short", 20))
}

func TestSummary_MultiByteWithoutSpaces(t *testing.T) {
	s := strings.Repeat("é", 20) // 2 bytes per rune
	got := Summary(s, 5)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "éé…", got)

	got = Summary("日本語の判例要旨", 7)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "日本…", got)
}
