package recorder

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Decrypter opens queue messages sealed by the hub with the shared content
// key. A message is base64(iv || AES-CBC(text)); the text is padded to a
// multiple of 128 characters with n copies of the character n.
type Decrypter struct {
	block cipher.Block
}

// NewDecrypter accepts a 16, 24 or 32 byte AES key.
func NewDecrypter(key []byte) (*Decrypter, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("content key: %w", err)
	}
	return &Decrypter{block: block}, nil
}

// Decrypt returns the plaintext JSON of a message body.
func (d *Decrypter) Decrypt(body string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(body))
	if err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a whole number of blocks", len(raw))
	}

	iv, ciphertext := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(d.block, iv).CryptBlocks(plain, ciphertext)
	return unpad(plain)
}

// unpad strips the character padding. Padding is counted in characters,
// not bytes, so a pad character above 0x7f spans two bytes.
func unpad(b []byte) ([]byte, error) {
	if !utf8.Valid(b) {
		return nil, errors.New("decrypted message is not UTF-8; wrong key?")
	}
	last, _ := utf8.DecodeLastRune(b)
	n := int(last)
	if n == 0 || n > utf8.RuneCount(b) {
		return nil, fmt.Errorf("invalid padding length %d", n)
	}

	end := len(b)
	for i := 0; i < n; i++ {
		r, size := utf8.DecodeLastRune(b[:end])
		if r != last {
			return nil, errors.New("inconsistent padding")
		}
		end -= size
	}
	return b[:end], nil
}
