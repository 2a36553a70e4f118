package httpgin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestETagMatches(t *testing.T) {
	tag := etagOf([]byte(`{"id":1}`), true)

	assert.True(t, etagMatches(tag, tag))
	assert.True(t, etagMatches(tag[2:], tag), "strong form matches weakly")
	assert.True(t, etagMatches(`"other", `+tag, tag))
	assert.True(t, etagMatches("*", tag))
	assert.False(t, etagMatches("", tag))
	assert.False(t, etagMatches(`"other"`, tag))
}

func TestETagOf_StableAndContentBound(t *testing.T) {
	a := etagOf([]byte(`{"holder":"alice"}`), false)
	b := etagOf([]byte(`{"holder":"alice"}`), false)
	c := etagOf([]byte(`{"holder":"bob"}`), false)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "W/")
}
