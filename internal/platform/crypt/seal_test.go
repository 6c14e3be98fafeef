package crypt

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestSealRoundTrip(t *testing.T) {
	s, err := NewSealer(testKey(t))
	require.NoError(t, err)

	token := []byte("shpat_0123456789abcdef")
	sealed, err := s.Seal(token)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, token))

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, token, opened)
}

func TestSealUniqueNonces(t *testing.T) {
	s, err := NewSealer(testKey(t))
	require.NoError(t, err)

	a, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenRejectsTamper(t *testing.T) {
	s, err := NewSealer(testKey(t))
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("secret"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0x01

	_, err = s.Open(sealed)
	assert.Error(t, err)
}

func TestNewSealerRejectsBadKey(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	assert.Error(t, err)
}
