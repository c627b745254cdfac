package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHexKey = "0000000000000000000000000000000000000000000000000000000000000001"

func TestSecretBox_RoundTrip(t *testing.T) {
	box, err := NewSecretBox(testHexKey)
	require.NoError(t, err)

	sealed, err := box.Seal("sk-ant-secret-value")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "secret-value", "sealed output must not contain the plaintext")

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-secret-value", opened)
}

func TestSecretBox_BadKeys(t *testing.T) {
	_, err := NewSecretBox("not-hex")
	assert.Error(t, err, "non-hex key must be rejected")

	_, err = NewSecretBox("abcd")
	assert.Error(t, err, "short key must be rejected")
}

func TestSecretBox_TamperDetection(t *testing.T) {
	box, err := NewSecretBox(testHexKey)
	require.NoError(t, err)
	sealed, err := box.Seal("value")
	require.NoError(t, err)

	_, err = box.Open("not base64!!")
	assert.Error(t, err, "invalid ciphertext encoding must be rejected")

	_, err = box.Open(sealed[:len(sealed)-8] + "AAAAAAA=")
	assert.Error(t, err, "tampered ciphertext must be rejected")
}

func TestSecretBox_UniqueNonce(t *testing.T) {
	box, err := NewSecretBox(testHexKey)
	require.NoError(t, err)

	first, err := box.Seal("value")
	require.NoError(t, err)
	second, err := box.Seal("value")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "sealing the same value twice must produce distinct ciphertexts")
}

func TestPlainSecretBox(t *testing.T) {
	box := PlainSecretBox{}

	sealed, err := box.Seal("value")
	require.NoError(t, err)
	assert.Equal(t, "value", sealed)

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "value", opened)
}
