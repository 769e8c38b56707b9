// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cipher encrypts chat messages with AES-256-CBC.
//
// The payload format is "<iv hex>:<ciphertext hex>" and the key is the first
// 32 characters of the base64 encoded SHA-256 of the secret, so payloads stay
// readable by anything that decrypted messages of the earlier Node service.
package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoKey is returned when the cipher is used without a secret.
var ErrNoKey = errors.New("encryption key is not configured")

// ErrMalformed is returned by Decrypt for payloads not produced by Encrypt.
var ErrMalformed = errors.New("malformed encrypted payload")

// Cipher encrypts and decrypts messages with a key derived from a secret.
type Cipher struct {
	key  []byte
	rand io.Reader
}

// New creates a Cipher for the given secret.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, ErrNoKey
	}
	return &Cipher{key: deriveKey(secret), rand: rand.Reader}, nil
}

func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return []byte(base64.StdEncoding.EncodeToString(sum[:])[:32])
}

// Encrypt returns the "iv:ciphertext" hex payload for message.
func (c *Cipher) Encrypt(message string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("creating block cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("generating iv: %w", err)
	}

	plain := pkcs7Pad([]byte(message), aes.BlockSize)
	out := make([]byte, len(plain))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plain)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(payload string) (string, error) {
	ivHex, dataHex, ok := strings.Cut(payload, ":")
	if !ok {
		return "", ErrMalformed
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrMalformed
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrMalformed
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("creating block cipher: %w", err)
	}
	out := make([]byte, len(data))
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, ErrMalformed
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, ErrMalformed
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrMalformed
		}
	}
	return b[:len(b)-n], nil
}
