package secret

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/99designs/keyring"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
)

// sealedPrefix tags values produced by Encrypt. Stored values without it
// are treated as legacy plaintext.
const sealedPrefix = "enc:v1:"

// masterKeyItem is the keyring entry holding the credential master key.
const masterKeyItem = "credential-master-key"

// ErrUnavailable is returned by Encrypt and Decrypt when no platform
// secret store is usable. Callers must check Available first and fall
// back to plaintext with an explicit flag.
var ErrUnavailable = errors.New("secret: encryption unavailable")

// ErrNotSealed is returned by Decrypt for values that do not carry the
// sealed-blob prefix.
var ErrNotSealed = errors.New("secret: value is not a sealed blob")

// Codec seals and opens credential values with an AEAD keyed from the
// platform secret store. When the secret store cannot be opened the
// codec reports itself unavailable and refuses to encrypt or decrypt.
type Codec struct {
	service string
	logger  *logrus.Logger

	mu     sync.Mutex
	probed bool
	key    []byte
}

// NewCodec creates a codec backed by the platform keyring under the
// given service name. Availability is probed lazily on first use.
func NewCodec(service string, logger *logrus.Logger) *Codec {
	return &Codec{service: service, logger: logger}
}

// NewCodecWithKey creates a codec with a fixed 32-byte master key,
// bypassing the platform keyring. Used by tests.
func NewCodecWithKey(key []byte, logger *logrus.Logger) *Codec {
	return &Codec{logger: logger, probed: true, key: key}
}

// openKeyring returns a configured keyring instance.
func (c *Codec) openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: c.service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// probe loads or creates the master key. Runs once; the outcome is
// cached for the codec's lifetime. Must be called with mu held.
func (c *Codec) probe() {
	if c.probed {
		return
	}
	c.probed = true

	ring, err := c.openKeyring()
	if err != nil {
		c.logger.WithError(err).Warn("platform secret store unavailable, credentials will not be encrypted")
		return
	}

	item, err := ring.Get(masterKeyItem)
	if err == nil {
		key, decErr := base64.StdEncoding.DecodeString(string(item.Data))
		if decErr != nil || len(key) != chacha20poly1305.KeySize {
			c.logger.Warn("stored credential master key is malformed, secret store disabled")
			return
		}
		c.key = key
		return
	}
	if !errors.Is(err, keyring.ErrKeyNotFound) {
		c.logger.WithError(err).Warn("reading credential master key failed, credentials will not be encrypted")
		return
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		c.logger.WithError(err).Warn("generating credential master key failed")
		return
	}
	err = ring.Set(keyring.Item{
		Key:  masterKeyItem,
		Data: []byte(base64.StdEncoding.EncodeToString(key)),
	})
	if err != nil {
		c.logger.WithError(err).Warn("storing credential master key failed, credentials will not be encrypted")
		return
	}
	c.key = key
}

// Available reports whether the codec can encrypt and decrypt. Callers
// must check this before every Encrypt or Decrypt attempt.
func (c *Codec) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probe()
	return c.key != nil
}

// IsSealed reports whether value carries the sealed-blob prefix.
func (c *Codec) IsSealed(value string) bool {
	return IsSealed(value)
}

// IsSealed reports whether value looks like a blob produced by Encrypt.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// Encrypt seals plaintext into a self-describing blob.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probe()
	if c.key == nil {
		return "", ErrUnavailable
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt and returns the plaintext.
func (c *Codec) Decrypt(blob string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probe()
	if c.key == nil {
		return "", ErrUnavailable
	}
	if !IsSealed(blob) {
		return "", ErrNotSealed
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(blob, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decoding sealed blob: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("sealed blob too short")
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("opening sealed blob: %w", err)
	}
	return string(plaintext), nil
}
