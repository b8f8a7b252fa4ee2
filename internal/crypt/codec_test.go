package crypt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodec_EncryptDecryptRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret")
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"

	texts := []string{
		"hello",
		"a",
		"exactly sixteen!",
		strings.Repeat("long message ", 100),
		"не только ascii",
	}

	for _, text := range texts {
		encrypted := codec.Encrypt(text, chatId)
		assert.NotEqual(t, text, encrypted, "ciphertext should differ from plaintext")
		assert.True(t, IsEncrypted(encrypted), "ciphertext should carry the separator format")
		assert.Equal(t, text, codec.Decrypt(encrypted, chatId), "round trip should restore plaintext")
	}
}

func TestCodec_EncryptProducesFreshIV(t *testing.T) {
	codec := NewCodec("test-secret")
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"

	first := codec.Encrypt("same message", chatId)
	second := codec.Encrypt("same message", chatId)
	assert.NotEqual(t, first, second, "same plaintext should encrypt differently")
}

func TestCodec_KeyIsPerChat(t *testing.T) {
	codec := NewCodec("test-secret")

	encrypted := codec.Encrypt("hello", "694a909e-bec7-4dbe-bf38-935a99d848cc")
	decrypted := codec.Decrypt(encrypted, "67f85047-09d0-42a2-a5ee-9ce8db28cb07")
	assert.NotEqual(t, "hello", decrypted, "another chat's key should not decrypt the message")
}

func TestCodec_EncryptEmptyText(t *testing.T) {
	codec := NewCodec("test-secret")
	assert.Equal(t, "", codec.Encrypt("", "694a909e-bec7-4dbe-bf38-935a99d848cc"))
}

func TestCodec_DecryptPassesThroughMalformedInput(t *testing.T) {
	codec := NewCodec("test-secret")
	const chatId = "694a909e-bec7-4dbe-bf38-935a99d848cc"

	inputs := []string{
		"plain text without separator",
		"not-hex:also-not-hex",
		"deadbeef:cafebabe",
		"aa:bb:cc",
		":missing-iv",
		"missing-data:",
	}

	for _, input := range inputs {
		assert.Equal(t, input, codec.Decrypt(input, chatId), "malformed input should pass through unchanged")
	}
}

func TestIsEncrypted(t *testing.T) {
	assert.False(t, IsEncrypted(""))
	assert.False(t, IsEncrypted("plain text"))
	assert.False(t, IsEncrypted("a:b:c"))
	assert.False(t, IsEncrypted(":b"))
	assert.False(t, IsEncrypted("a:"))
	assert.True(t, IsEncrypted("deadbeef:cafebabe"))
}
