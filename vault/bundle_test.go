package vault

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func testBundle() *EncryptedKeyBundle {
	return &EncryptedKeyBundle{
		Version:    BundleVersion,
		Salt:       bytes.Repeat([]byte{0x01}, saltLen),
		IV:         bytes.Repeat([]byte{0x02}, ivLen),
		Ciphertext: bytes.Repeat([]byte{0x03}, 48),
		Tag:        bytes.Repeat([]byte{0x04}, tagLen),
		Address:    "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
	}
}

func TestBundleRoundTrip(t *testing.T) {
	b := testBundle()

	data, err := encodeBundle(b)
	if err != nil {
		t.Fatalf("encodeBundle failed: %v", err)
	}

	got, err := decodeBundle(data)
	if err != nil {
		t.Fatalf("decodeBundle failed: %v", err)
	}

	if got.Version != b.Version {
		t.Errorf("version mismatch: %d != %d", got.Version, b.Version)
	}
	if !bytes.Equal(got.Salt, b.Salt) {
		t.Error("salt mismatch")
	}
	if !bytes.Equal(got.IV, b.IV) {
		t.Error("iv mismatch")
	}
	if !bytes.Equal(got.Ciphertext, b.Ciphertext) {
		t.Error("ciphertext mismatch")
	}
	if !bytes.Equal(got.Tag, b.Tag) {
		t.Error("tag mismatch")
	}
	if got.Address != b.Address {
		t.Errorf("address mismatch: %s != %s", got.Address, b.Address)
	}
}

func TestDecodeBundleRejectsUnknownVersion(t *testing.T) {
	for _, version := range []int{0, 1, 3, 99} {
		b := testBundle()
		b.Version = version

		data, err := cbor.Marshal(b)
		if err != nil {
			t.Fatalf("cbor.Marshal failed: %v", err)
		}

		_, err = decodeBundle(data)
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Errorf("version %d: expected ErrUnsupportedVersion, got %v", version, err)
		}
	}
}

func TestDecodeBundleRejectsGarbage(t *testing.T) {
	_, err := decodeBundle([]byte("not cbor at all"))
	if !errors.Is(err, ErrDataCorruption) {
		t.Errorf("expected ErrDataCorruption, got %v", err)
	}
}

func TestDecodeBundleRejectsIncompleteFields(t *testing.T) {
	mutations := map[string]func(*EncryptedKeyBundle){
		"empty salt":       func(b *EncryptedKeyBundle) { b.Salt = nil },
		"short iv":         func(b *EncryptedKeyBundle) { b.IV = b.IV[:8] },
		"empty ciphertext": func(b *EncryptedKeyBundle) { b.Ciphertext = nil },
		"short tag":        func(b *EncryptedKeyBundle) { b.Tag = b.Tag[:16] },
		"empty address":    func(b *EncryptedKeyBundle) { b.Address = "" },
	}

	for name, mutate := range mutations {
		b := testBundle()
		mutate(b)

		data, err := cbor.Marshal(b)
		if err != nil {
			t.Fatalf("%s: cbor.Marshal failed: %v", name, err)
		}

		if _, err := decodeBundle(data); !errors.Is(err, ErrDataCorruption) {
			t.Errorf("%s: expected ErrDataCorruption, got %v", name, err)
		}
	}
}
