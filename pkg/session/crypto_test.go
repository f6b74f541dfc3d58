package session

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionKeys(t *testing.T) {
	t.Run("Shared Secret Agreement", func(t *testing.T) {
		serverPriv, err := ecdh.P256().GenerateKey(rand.Reader)
		require.NoError(t, err)
		serverPubHex := hex.EncodeToString(serverPriv.PublicKey().Bytes())

		client, err := newSessionKeys(serverPubHex)
		require.NoError(t, err)

		// The server derives the same secret from the client's public key.
		server, err := sessionKeysFrom(serverPriv, client.publicHex)
		require.NoError(t, err)
		assert.Equal(t, client.shared, server.shared, "both sides must agree on the ECDH secret")
		assert.Len(t, client.shared, 32)
	})

	t.Run("Password Roundtrip", func(t *testing.T) {
		serverPriv, err := ecdh.P256().GenerateKey(rand.Reader)
		require.NoError(t, err)
		serverPubHex := hex.EncodeToString(serverPriv.PublicKey().Bytes())

		client, err := newSessionKeys(serverPubHex)
		require.NoError(t, err)
		server, err := sessionKeysFrom(serverPriv, client.publicHex)
		require.NoError(t, err)

		for _, password := range []string{"a", "hunter2", "exactly16bytes!!", strings.Repeat("x", 100)} {
			enc, err := client.encrypt(password)
			require.NoError(t, err)
			assert.NotContains(t, enc, password)

			dec, err := server.decrypt(enc)
			require.NoError(t, err)
			assert.Equal(t, password, dec)
		}
	})

	t.Run("Platform Key Is Usable", func(t *testing.T) {
		keys, err := newSessionKeys(serverPublicKeyHex)
		require.NoError(t, err)
		enc, err := keys.encrypt("password")
		require.NoError(t, err)
		raw, err := hex.DecodeString(enc)
		require.NoError(t, err)
		assert.Equal(t, 0, len(raw)%16, "ciphertext must be block aligned")
	})

	t.Run("Invalid Server Key", func(t *testing.T) {
		_, err := newSessionKeys("not-hex")
		require.Error(t, err)

		_, err = newSessionKeys("0400")
		require.Error(t, err, "truncated point must be rejected")
	})
}

func TestPKCS7(t *testing.T) {
	padded := pkcs7Pad([]byte("abc"), 16)
	require.Len(t, padded, 16)
	out, err := pkcs7Unpad(padded, 16)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)

	// A full block of padding is added when the input is block aligned.
	padded = pkcs7Pad(make([]byte, 16), 16)
	require.Len(t, padded, 32)

	_, err = pkcs7Unpad([]byte{1, 2, 3}, 16)
	require.Error(t, err)
}
