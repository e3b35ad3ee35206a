package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeNameReplacesIllegalCharacters(t *testing.T) {
	assert.Equal(t, "some_file - 123.jpg", SanitizeName("some_file: 123.jpg"))
	assert.Equal(t, "a+b", SanitizeName("a/b"))
	assert.Equal(t, "what!", SanitizeName("what?"))
}

func TestSanitizeNameIsIdempotent(t *testing.T) {
	for _, name := range []string{
		`weird: name? <with> "quotes" | pipes * stars / slashes \ back`,
		"plain-name.jpg",
		"",
	} {
		once := SanitizeName(name)
		twice := SanitizeName(once)
		assert.Equal(t, once, twice, "sanitize must be idempotent for %q", name)
	}
}

func TestSanitizePartsJoinsIndependently(t *testing.T) {
	got := SanitizeParts([]string{"Show: Name", "Season 1", "s01e01.jpg"}, "/")
	assert.Equal(t, "Show - Name/Season 1/s01e01.jpg", got)
}
