package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/actscript/pkg/domain"
	"github.com/aretw0/actscript/pkg/ports"
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey seals every new snapshot. Must be 32 bytes (AES-256).
	ActiveKey []byte

	// FallbackKeys can still open snapshots sealed before a key rotation.
	FallbackKeys [][]byte
}

const (
	envelopeKey = "__encrypted__"
	keyIDKey    = "__key_id__"
)

// ErrInvalidKey is returned for keys that are not 32 bytes long.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")

// ErrUnknownKey is returned when no configured key matches an envelope.
var ErrUnknownKey = errors.New("no key matches the snapshot")

type sealer struct {
	id   string
	aead cipher.AEAD
}

type encryptionMiddleware struct {
	next   ports.StateStore
	active sealer
	byID   map[string]sealer
}

// NewEncryptionMiddleware seals snapshots with AES-GCM. The stored state is an
// envelope that keeps only the session ID and current act readable.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	active, err := newSealer(config.ActiveKey)
	if err != nil {
		return nil, err
	}
	byID := map[string]sealer{active.id: active}
	for i, k := range config.FallbackKeys {
		s, err := newSealer(k)
		if err != nil {
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		if _, dup := byID[s.id]; !dup {
			byID[s.id] = s
		}
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{next: next, active: active, byID: byID}
	}, nil
}

func newSealer(key []byte) (sealer, error) {
	if len(key) != 32 {
		return sealer{}, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return sealer{}, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return sealer{}, err
	}
	sum := sha256.Sum256(key)
	return sealer{id: hex.EncodeToString(sum[:4]), aead: aead}, nil
}

// ParseKey decodes a base64 or 64 character hex key.
func ParseKey(s string) ([]byte, error) {
	if len(s) == 64 {
		if k, err := hex.DecodeString(s); err == nil {
			return k, nil
		}
	}
	k, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(k) != 32 {
		return nil, ErrInvalidKey
	}
	return k, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	nonce := make([]byte, m.active.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	// the session ID is bound as associated data so envelopes cannot be
	// swapped between sessions
	sealed := m.active.aead.Seal(nonce, nonce, raw, []byte(sessionID))

	envelope := domain.NewState(nil)
	envelope.SessionID = state.SessionID
	envelope.Act = state.Act
	envelope.Context = domain.Context{
		envelopeKey: base64.StdEncoding.EncodeToString(sealed),
		keyIDKey:    m.active.id,
	}
	return m.next.Save(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	encoded, ok := envelope.Context[envelopeKey].(string)
	if !ok {
		// plain snapshots are refused once encryption is on
		return nil, errors.New("state is missing encrypted data envelope")
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	raw, err := m.open(envelope.Context[keyIDKey], sealed, []byte(sessionID))
	if err != nil {
		return nil, fmt.Errorf("decrypt state: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal decrypted state: %w", err)
	}
	return &state, nil
}

func (m *encryptionMiddleware) open(keyID any, sealed, aad []byte) ([]byte, error) {
	id, _ := keyID.(string)
	s, ok := m.byID[id]
	if !ok {
		return nil, ErrUnknownKey
	}
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("ciphertext too short")
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], aad)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
