package storage

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// SealBox 订单与成品数据的封装加密。主密钥经HKDF-SHA256按用途标签
// 派生出每类数据的子密钥，密文前缀随机nonce
type SealBox struct {
	masterKey []byte
}

// NewSealBox 从hex编码的主密钥创建
func NewSealBox(masterKeyHex string) (*SealBox, error) {
	key, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}
	if len(key) < 16 {
		return nil, fmt.Errorf("master key too short: %d bytes", len(key))
	}
	return &SealBox{masterKey: key}, nil
}

// Seal 加密数据，label区分用途（如 order-data、song-result）
func (b *SealBox) Seal(label string, plaintext []byte) ([]byte, error) {
	aead, err := b.aead(label)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open 解密数据，label必须与加密时一致
func (b *SealBox) Open(label string, ciphertext []byte) ([]byte, error) {
	aead, err := b.aead(label)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(ciphertext))
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed data: %w", err)
	}
	return plaintext, nil
}

// aead 按用途标签派生子密钥并构建AEAD
func (b *SealBox) aead(label string) (cipher.AEAD, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	reader := hkdf.New(sha256.New, b.masterKey, nil, []byte(label))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key for %q: %w", label, err)
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return aead, nil
}
