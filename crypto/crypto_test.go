package crypto

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func encodeForTest(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeForTest(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

func TestAvailable(t *testing.T) {
	if !Available() {
		t.Fatal("expected AES-GCM to be available")
	}
}

func TestGenerateKey(t *testing.T) {
	k1, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	k2, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	if len(k1.Bytes()) != 32 {
		t.Errorf("expected 32-byte key, got %d", len(k1.Bytes()))
	}
	if k1.Equal(k2) {
		t.Error("two generated keys should not be equal")
	}
	if k1.ID() == "" || k1.ID() == k2.ID() {
		t.Error("keys should carry distinct non-empty IDs")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	tests := []struct {
		name  string
		value any
	}{
		{"String", "a secret string"},
		{"Number", 42.5},
		{"Bool", true},
		{"Null", nil},
		{"Array", []any{"a", float64(1), false}},
		{"Object", map[string]any{"user": "ada", "token": "t-123", "n": float64(7)}},
		{"Nested", map[string]any{"outer": map[string]any{"inner": []any{"x", "y"}}}},
		{"Unicode", "pässwörd ≠ password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Encrypt(tt.value, key)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}

			var got any
			if err := Decrypt(payload, key, &got); err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}

			want, _ := json.Marshal(tt.value)
			have, _ := json.Marshal(got)
			if !bytes.Equal(want, have) {
				t.Errorf("round trip mismatch: want %s, got %s", want, have)
			}
		})
	}
}

func TestEncryptTypedRoundTrip(t *testing.T) {
	type session struct {
		User  string `json:"user"`
		Token string `json:"token"`
		TTL   int    `json:"ttl"`
	}

	key, _ := GenerateKey()
	in := session{User: "ada", Token: "t-123", TTL: 300}

	payload, err := Encrypt(in, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	var out session
	if err := Decrypt(payload, key, &out); err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}

func TestEncryptFreshIV(t *testing.T) {
	key, _ := GenerateKey()
	value := "same plaintext"

	p1, err := Encrypt(value, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	p2, err := Encrypt(value, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if p1.IV == p2.IV {
		t.Error("expected a fresh IV per encryption")
	}
	if p1.Ciphertext == p2.Ciphertext {
		t.Error("expected differing ciphertext for repeated plaintext")
	}
}

func TestEncryptPayloadShape(t *testing.T) {
	key, _ := GenerateKey()
	salt, _ := GenerateSalt(0)

	payload, err := Encrypt("v", key, WithEmbeddedSalt(salt))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if payload.Algorithm != AlgorithmAESGCM {
		t.Errorf("expected algorithm %q, got %q", AlgorithmAESGCM, payload.Algorithm)
	}
	if payload.Salt == "" {
		t.Error("expected payload to carry the embedded salt")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshaling payload failed: %v", err)
	}
	for _, field := range []string{`"ciphertext"`, `"iv"`, `"salt"`, `"algorithm"`} {
		if !strings.Contains(string(raw), field) {
			t.Errorf("payload JSON missing %s: %s", field, raw)
		}
	}

	// Without an embedded salt the field is omitted entirely.
	bare, _ := Encrypt("v", key)
	raw, _ = json.Marshal(bare)
	if strings.Contains(string(raw), `"salt"`) {
		t.Errorf("payload JSON should omit salt when none was embedded: %s", raw)
	}
}

func TestEncryptUnserializable(t *testing.T) {
	key, _ := GenerateKey()
	_, err := Encrypt(make(chan int), key)
	if !errors.Is(err, ErrSerialization) {
		t.Errorf("expected ErrSerialization, got %v", err)
	}
}

func TestDecryptTamper(t *testing.T) {
	key, _ := GenerateKey()
	payload, err := Encrypt("sensitive", key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	flipFirstByte := func(encoded string) string {
		raw, err := decodeForTest(encoded)
		if err != nil {
			t.Fatalf("decoding field: %v", err)
		}
		raw[0] ^= 0x01
		return encodeForTest(raw)
	}

	t.Run("Ciphertext", func(t *testing.T) {
		tampered := *payload
		tampered.Ciphertext = flipFirstByte(payload.Ciphertext)
		var out any
		if err := Decrypt(&tampered, key, &out); !errors.Is(err, ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
	})

	t.Run("IV", func(t *testing.T) {
		tampered := *payload
		tampered.IV = flipFirstByte(payload.IV)
		var out any
		if err := Decrypt(&tampered, key, &out); !errors.Is(err, ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
	})

	t.Run("WrongKey", func(t *testing.T) {
		other, _ := GenerateKey()
		var out any
		if err := Decrypt(payload, other, &out); !errors.Is(err, ErrAuthentication) {
			t.Errorf("expected ErrAuthentication, got %v", err)
		}
	})

	t.Run("UnknownAlgorithm", func(t *testing.T) {
		tampered := *payload
		tampered.Algorithm = "ROT13"
		var out any
		if err := Decrypt(&tampered, key, &out); err == nil {
			t.Error("expected error for unknown algorithm")
		}
	})
}

func TestDeriveKey(t *testing.T) {
	password := "correct horse battery staple"

	key1, salt, err := DeriveKey(password)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if len(salt) != DefaultSaltLength {
		t.Errorf("expected generated salt of %d bytes, got %d", DefaultSaltLength, len(salt))
	}

	t.Run("Deterministic", func(t *testing.T) {
		key2, salt2, err := DeriveKey(password, WithSalt(salt))
		if err != nil {
			t.Fatalf("DeriveKey failed: %v", err)
		}
		if !bytes.Equal(salt, salt2) {
			t.Error("expected the provided salt to be returned")
		}
		if !key1.Equal(key2) {
			t.Error("same password and salt should derive the same key")
		}
	})

	t.Run("PasswordSensitive", func(t *testing.T) {
		key2, _, err := DeriveKey("different password", WithSalt(salt))
		if err != nil {
			t.Fatalf("DeriveKey failed: %v", err)
		}
		if key1.Equal(key2) {
			t.Error("different passwords should derive different keys")
		}
	})

	t.Run("SaltSensitive", func(t *testing.T) {
		key2, _, err := DeriveKey(password)
		if err != nil {
			t.Fatalf("DeriveKey failed: %v", err)
		}
		if key1.Equal(key2) {
			t.Error("fresh salt should derive a different key")
		}
	})

	t.Run("NormalizedPassword", func(t *testing.T) {
		// Composed and decomposed forms of the same password derive the same key.
		composed, _, err := DeriveKey("café", WithSalt(salt))
		if err != nil {
			t.Fatalf("DeriveKey failed: %v", err)
		}
		decomposed, _, err := DeriveKey("café", WithSalt(salt))
		if err != nil {
			t.Fatalf("DeriveKey failed: %v", err)
		}
		if !composed.Equal(decomposed) {
			t.Error("unicode forms of the same password should derive the same key")
		}
	})

	t.Run("SaltNotMutated", func(t *testing.T) {
		orig := bytes.Clone(salt)
		if _, _, err := DeriveKey(password, WithSalt(salt)); err != nil {
			t.Fatalf("DeriveKey failed: %v", err)
		}
		if !bytes.Equal(orig, salt) {
			t.Error("DeriveKey must not mutate the caller's salt")
		}
	})

	t.Run("EmptyPassword", func(t *testing.T) {
		if _, _, err := DeriveKey(""); err == nil {
			t.Error("expected error for empty password")
		}
	})

	t.Run("CustomIterations", func(t *testing.T) {
		fast, _, err := DeriveKey(password, WithSalt(salt), WithIterations(1000))
		if err != nil {
			t.Fatalf("DeriveKey failed: %v", err)
		}
		if key1.Equal(fast) {
			t.Error("different iteration counts should derive different keys")
		}
	})
}

func TestExportImportKey(t *testing.T) {
	key, _ := GenerateKey()

	encoded, err := ExportKey(key)
	if err != nil {
		t.Fatalf("ExportKey failed: %v", err)
	}

	imported, err := ImportKey(encoded)
	if err != nil {
		t.Fatalf("ImportKey failed: %v", err)
	}
	if !key.Equal(imported) {
		t.Error("imported key should equal the original")
	}

	// The imported key must decrypt payloads sealed by the original.
	payload, err := Encrypt("cross-key payload", key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	var out string
	if err := Decrypt(payload, imported, &out); err != nil {
		t.Fatalf("Decrypt with imported key failed: %v", err)
	}
	if out != "cross-key payload" {
		t.Errorf("expected round trip value, got %q", out)
	}

	t.Run("InvalidEncoding", func(t *testing.T) {
		if _, err := ImportKey("!!not-base64!!"); err == nil {
			t.Error("expected error for invalid base64")
		}
	})

	t.Run("WrongLength", func(t *testing.T) {
		if _, err := ImportKey(encodeForTest([]byte("short"))); err == nil {
			t.Error("expected error for truncated key material")
		}
	})

	t.Run("NilKey", func(t *testing.T) {
		if _, err := ExportKey(nil); err == nil {
			t.Error("expected error for nil key")
		}
	})
}

func TestGenerateSalt(t *testing.T) {
	s1, err := GenerateSalt(0)
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	if len(s1) != DefaultSaltLength {
		t.Errorf("expected default length %d, got %d", DefaultSaltLength, len(s1))
	}

	s2, err := GenerateSalt(32)
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	if len(s2) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(s2))
	}

	s3, _ := GenerateSalt(0)
	if bytes.Equal(s1, s3) {
		t.Error("salts should be random")
	}
}

func TestKeyWipe(t *testing.T) {
	key, _ := GenerateKey()
	key.Wipe()
	for i, b := range key.Bytes() {
		if b != 0 {
			t.Fatalf("Wipe left byte %d at %#x", i, b)
		}
	}
}
