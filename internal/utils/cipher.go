package utils

import (
    "crypto/aes"
    "crypto/cipher"
    "crypto/rand"
    "encoding/base64"
    "strings"

    "github.com/pkg/errors"
    "golang.org/x/crypto/argon2"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

const envelopeSep = ":"

// ErrDecryption covers every way an envelope can fail to open: bad framing,
// bad base64, wrong key or a tampered byte.
var ErrDecryption = errors.New("decryption failed")

// b64 rejects non-canonical encodings so that every altered character of
// an envelope changes the decoded bytes.
var b64 = base64.StdEncoding.Strict()

// Cipher encrypts small secrets (SMTP passwords) at rest with AES-256-GCM.
// Envelopes look like "base64(nonce):base64(ciphertext|tag)".
type Cipher struct {
    aead cipher.AEAD
}

// NewCipher returns a Cipher for a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
    if len(key) != KeySize {
        return nil, errors.Errorf("cipher key must be %d bytes, got %d", KeySize, len(key))
    }
    block, err := aes.NewCipher(key)
    if err != nil {
        return nil, errors.Wrap(err, "aes")
    }
    aead, err := cipher.NewGCM(block)
    if err != nil {
        return nil, errors.Wrap(err, "gcm")
    }
    return &Cipher{aead: aead}, nil
}

// DeriveKey stretches an operator passphrase into a cipher key with Argon2id.
// The salt is application-wide configuration, so the same passphrase and salt
// always give the same key.
func DeriveKey(passphrase, salt string) []byte {
    return argon2.IDKey([]byte(passphrase), []byte(salt), 1, 64*1024, 4, KeySize)
}

// LegacyKey pads passphrase with '0' bytes or truncates it to KeySize.
// Only for deployments that must keep envelopes produced with that scheme;
// it offers no stretching at all.
func LegacyKey(passphrase string) []byte {
    key := []byte(passphrase)
    if len(key) >= KeySize {
        return key[:KeySize]
    }
    pad := make([]byte, KeySize-len(key))
    for i := range pad {
        pad[i] = '0'
    }
    return append(key, pad...)
}

// KeyFromConfig picks the derivation named by kdf ("argon2id" or "legacy").
func KeyFromConfig(kdf, passphrase, salt string) ([]byte, error) {
    switch strings.ToLower(kdf) {
    case "", "argon2id":
        return DeriveKey(passphrase, salt), nil
    case "legacy":
        return LegacyKey(passphrase), nil
    default:
        return nil, errors.Errorf("unknown key derivation %q", kdf)
    }
}

// Encrypt seals plain with a fresh random nonce.
func (c *Cipher) Encrypt(plain string) (string, error) {
    nonce := make([]byte, c.aead.NonceSize())
    if _, err := rand.Read(nonce); err != nil {
        return "", errors.Wrap(err, "nonce")
    }
    sealed := c.aead.Seal(nil, nonce, []byte(plain), nil)
    return b64.EncodeToString(nonce) + envelopeSep + b64.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt.
func (c *Cipher) Decrypt(envelope string) (string, error) {
    nonceB64, dataB64, ok := strings.Cut(envelope, envelopeSep)
    if !ok {
        return "", ErrDecryption
    }
    nonce, err := b64.DecodeString(nonceB64)
    if err != nil || len(nonce) != c.aead.NonceSize() {
        return "", ErrDecryption
    }
    data, err := b64.DecodeString(dataB64)
    if err != nil || len(data) < c.aead.Overhead() {
        return "", ErrDecryption
    }
    plain, err := c.aead.Open(nil, nonce, data, nil)
    if err != nil {
        return "", ErrDecryption
    }
    return string(plain), nil
}
