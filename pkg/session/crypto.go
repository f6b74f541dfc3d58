package session

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// The platform encrypts the login password with AES-256-CBC. The key is the
// ECDH shared secret between a locally generated P-256 keypair and the
// server's fixed public key; the IV is the first 16 bytes of that same
// secret. Padding is PKCS#7. This wire format is fixed by the server.
const serverPublicKeyHex = "04c5c00c4f8d1197cc7c3167c52bf7acb054d722f0ef08dcd7e0883236e0d72a3868d9750cb47fa4619248f3d83f0f662671dadc6e2d31c2f41db0161651c7c076"

type sessionKeys struct {
	private *ecdh.PrivateKey
	// publicHex is the local public key, uncompressed point, hex encoded,
	// sent to the server inside the login payload.
	publicHex string
	// shared is the 32-byte ECDH secret with the server key.
	shared []byte
}

// newSessionKeys generates the once-per-process keypair and derives the
// shared secret with the given server public key (uncompressed hex).
func newSessionKeys(serverKeyHex string) (*sessionKeys, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session keypair: %w", err)
	}
	return sessionKeysFrom(priv, serverKeyHex)
}

func sessionKeysFrom(priv *ecdh.PrivateKey, serverKeyHex string) (*sessionKeys, error) {
	raw, err := hex.DecodeString(serverKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid server public key hex: %w", err)
	}
	serverPub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid server public key: %w", err)
	}
	shared, err := priv.ECDH(serverPub)
	if err != nil {
		return nil, fmt.Errorf("ecdh key exchange failed: %w", err)
	}
	return &sessionKeys{
		private:   priv,
		publicHex: hex.EncodeToString(priv.PublicKey().Bytes()),
		shared:    shared,
	}, nil
}

// encrypt AES-256-CBC encrypts plaintext with the shared secret and returns
// the hex-encoded ciphertext.
func (k *sessionKeys) encrypt(plaintext string) (string, error) {
	if len(k.shared) < 32 {
		return "", errors.New("shared secret too short for AES-256")
	}
	block, err := aes.NewCipher(k.shared[:32])
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, k.shared[:aes.BlockSize]).CryptBlocks(out, padded)
	return hex.EncodeToString(out), nil
}

// decrypt reverses encrypt; only used by tests to verify the wire format.
func (k *sessionKeys) decrypt(cipherHex string) (string, error) {
	raw, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", fmt.Errorf("invalid ciphertext hex: %w", err)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", errors.New("ciphertext is not block aligned")
	}
	block, err := aes.NewCipher(k.shared[:32])
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, k.shared[:aes.BlockSize]).CryptBlocks(out, raw)
	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
