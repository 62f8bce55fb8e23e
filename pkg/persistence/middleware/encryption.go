package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/signaltree/pkg/domain"
	"github.com/aretw0/signaltree/pkg/ports"
)

// envelopeKey marks the single record that carries the ciphertext.
const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.ReplayStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts replay records
// using AES-GCM. Step payloads never reach the underlying store in clear.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.ReplayStore) ports.ReplayStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Save(ctx context.Context, runKey string, records []domain.ReplayRecord) error {
	plainText, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal replay records: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey, []byte(runKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt replay records: %w", err)
	}

	// The envelope hides paths as well as payloads.
	envelope := []domain.ReplayRecord{{
		Path: domain.Path{envelopeKey},
		Args: map[string]any{
			envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
		},
	}}
	return m.next.Save(ctx, runKey, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, runKey string) ([]domain.ReplayRecord, error) {
	envelope, err := m.next.Load(ctx, runKey)
	if err != nil {
		return nil, err
	}

	if len(envelope) != 1 || !envelope[0].Path.Equal(domain.Path{envelopeKey}) {
		// Fail secure: plain records are never passed through.
		return nil, errors.New("replay records are missing the encrypted envelope")
	}
	encryptedStr, ok := envelope[0].Args[envelopeKey].(string)
	if !ok {
		return nil, errors.New("replay envelope has no ciphertext")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, []byte(runKey), m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt replay records: %w", err)
	}

	var records []domain.ReplayRecord
	if err := json.Unmarshal(plainText, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted replay records: %w", err)
	}
	return records, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, runKey string) error {
	return m.next.Delete(ctx, runKey)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

// The run key is bound as additional data, so records copied to another key
// fail to decrypt.
func encrypt(plaintext, key, aad []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

func decryptWithRotation(ciphertext, aad, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, aad, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, aad, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, aad, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, aad)
}
