package qr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeProducesImage(t *testing.T) {
	gen := NewGenerator("test-secret")

	png, err := gen.Encode("TICKET123")
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes
	assert.Equal(t, byte(0x89), png[0])
	assert.Equal(t, byte('P'), png[1])
}

func TestValidRoundTrip(t *testing.T) {
	gen := NewGenerator("test-secret")

	payload := signedPayload(gen, "TICKET123")
	code, ok := gen.Valid(payload)
	assert.True(t, ok)
	assert.Equal(t, "TICKET123", code)
}

func TestValid_RejectsForgedPayloads(t *testing.T) {
	gen := NewGenerator("test-secret")
	other := NewGenerator("other-secret")

	payload := signedPayload(other, "TICKET123")
	_, ok := gen.Valid(payload)
	assert.False(t, ok)

	_, ok = gen.Valid("TICKET123.garbage")
	assert.False(t, ok)

	_, ok = gen.Valid("no-separator")
	assert.False(t, ok)
}

// signedPayload rebuilds the payload string the same way Encode embeds it.
func signedPayload(g *Generator, code string) string {
	return fmt.Sprintf("%s.%s", code, g.sign(code))
}
