package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Codec encrypts message bodies with a per-chat AES-256-CBC key derived from
// the chat id and a server secret. No key material is stored: the same chat
// always derives the same key.
//
// Ciphertext wire format is "hex(iv):hex(data)". Anything that fails to
// encrypt or decrypt is passed through unchanged; message delivery must not
// break on codec failures.
type Codec struct {
	secret string
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: secret}
}

func (c *Codec) chatKey(chatId string) []byte {
	sum := sha256.Sum256([]byte(chatId + c.secret))
	return sum[:]
}

func (c *Codec) Encrypt(text string, chatId string) string {
	if text == "" {
		return text
	}

	block, err := aes.NewCipher(c.chatKey(chatId))
	if err != nil {
		return text
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return text
	}

	padded := pkcs7Pad([]byte(text), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(encrypted)
}

func (c *Codec) Decrypt(encryptedText string, chatId string) string {
	if !IsEncrypted(encryptedText) {
		return encryptedText
	}

	parts := strings.Split(encryptedText, ":")

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return encryptedText
	}

	encrypted, err := hex.DecodeString(parts[1])
	if err != nil || len(encrypted) == 0 || len(encrypted)%aes.BlockSize != 0 {
		return encryptedText
	}

	block, err := aes.NewCipher(c.chatKey(chatId))
	if err != nil {
		return encryptedText
	}

	decrypted := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, encrypted)

	unpadded, err := pkcs7Unpad(decrypted, aes.BlockSize)
	if err != nil {
		return encryptedText
	}
	return string(unpadded)
}

// IsEncrypted reports whether text looks like codec output: exactly one
// separator splitting it into two parts.
func IsEncrypted(text string) bool {
	if text == "" {
		return false
	}
	parts := strings.Split(text, ":")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
