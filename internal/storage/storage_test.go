package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data := []byte("encrypted order payload")
	tags := []Tag{
		{Name: "Content-Kind", Value: "order-data"},
		{Name: "Token-Id", Value: "7"},
	}

	contentId, err := store.Put(ctx, data, tags)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if contentId == "" {
		t.Fatal("Put returned empty content id")
	}

	// 上传后立刻取回，字节必须完全一致
	got, err := store.Get(ctx, contentId)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: got %q, want %q", got, data)
	}

	gotTags, ok := store.Tags(contentId)
	if !ok || len(gotTags) != 2 || gotTags[0].Value != "order-data" {
		t.Errorf("tags = %+v, want stored upload tags", gotTags)
	}

	// 同样的字节得到同样的标识
	again, err := store.Put(ctx, data, nil)
	if err != nil || again != contentId {
		t.Errorf("second Put = %q err=%v, want same id %q", again, err, contentId)
	}
}

func TestMemoryStoreMiss(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "deadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSealBoxRoundTrip(t *testing.T) {
	masterKey := hex.EncodeToString(bytes.Repeat([]byte{0x42}, 32))
	box, err := NewSealBox(masterKey)
	if err != nil {
		t.Fatalf("NewSealBox failed: %v", err)
	}

	plaintext := []byte(`{"recipient":"Ana","occasion":"cumpleaños"}`)
	sealed, err := box.Seal("order-data", plaintext)
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if bytes.Contains(sealed, []byte("Ana")) {
		t.Error("sealed payload leaks plaintext")
	}

	opened, err := box.Open("order-data", sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Errorf("round trip mismatch: got %q", opened)
	}

	// 用途标签不一致时解密必须失败
	if _, err := box.Open("song-result", sealed); err == nil {
		t.Error("Open with wrong label must fail")
	}

	// 篡改密文必须失败
	sealed[len(sealed)-1] ^= 0xff
	if _, err := box.Open("order-data", sealed); err == nil {
		t.Error("Open of tampered ciphertext must fail")
	}
}

func TestSealBoxRejectsBadKey(t *testing.T) {
	if _, err := NewSealBox("zz"); err == nil {
		t.Error("non-hex master key must be rejected")
	}
	if _, err := NewSealBox("abcd"); err == nil {
		t.Error("short master key must be rejected")
	}
}
