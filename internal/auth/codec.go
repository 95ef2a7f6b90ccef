package auth

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Token modes accepted by NewCodec.
const (
	ModeLegacy = "legacy"
	ModeKeyed  = "keyed"
)

var ErrInvalidSessionKey = errors.New("session key must be between 1 and 64 bytes")

// Codec derives the session token from a credential pair.
// Implementations must be pure and deterministic.
type Codec interface {
	Encode(email, password string) string
}

// NewCodec returns the codec for the given mode. An empty mode is legacy.
func NewCodec(mode string, key []byte) (Codec, error) {
	switch mode {
	case "", ModeLegacy:
		return LegacyCodec{}, nil
	case ModeKeyed:
		return NewKeyedCodec(key)
	default:
		return nil, fmt.Errorf("unknown token mode %q", mode)
	}
}

// LegacyCodec produces base64("email:password").
//
// The token is reversible: anyone holding the cookie can read the password.
// It is kept so cookies issued by earlier deployments stay valid; use
// KeyedCodec where that compatibility is not needed.
type LegacyCodec struct{}

func (LegacyCodec) Encode(email, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(email + ":" + password))
}

// KeyedCodec produces an unpadded base64url BLAKE2b-256 MAC of the credentials.
type KeyedCodec struct {
	key []byte
}

func NewKeyedCodec(key []byte) (*KeyedCodec, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, ErrInvalidSessionKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &KeyedCodec{key: k}, nil
}

func (c *KeyedCodec) Encode(email, password string) string {
	h, err := blake2b.New256(c.key)
	if err != nil {
		// key length is checked in NewKeyedCodec
		panic(err)
	}
	writeField(h, email)
	writeField(h, password)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// writeField length-prefixes s so "a:b"+"c" and "a"+"b:c" hash differently.
func writeField(h hash.Hash, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	_, _ = h.Write(n[:])
	_, _ = h.Write([]byte(s))
}
