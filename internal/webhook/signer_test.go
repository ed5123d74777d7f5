package webhook

import (
	"testing"
	"time"
)

func TestGenerateSignature(t *testing.T) {
	tests := []struct {
		name        string
		secret      string
		timestamp   int64
		payloadJSON []byte
	}{
		{
			name:        "basic signature",
			secret:      "whsec_test123",
			timestamp:   1736600000,
			payloadJSON: []byte(`{"event_type":"progress.logged","event_id":"123"}`),
		},
		{
			name:        "empty payload",
			secret:      "secret",
			timestamp:   1000000000,
			payloadJSON: []byte(`{}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := GenerateSignature(tt.secret, tt.timestamp, tt.payloadJSON)

			// Hex-encoded SHA256 is 64 chars
			if len(sig) != 64 {
				t.Errorf("signature length = %d, want 64", len(sig))
			}

			sig2 := GenerateSignature(tt.secret, tt.timestamp, tt.payloadJSON)
			if sig != sig2 {
				t.Error("signature is not deterministic")
			}

			sig3 := GenerateSignature(tt.secret, tt.timestamp+1, tt.payloadJSON)
			if sig == sig3 {
				t.Error("different timestamp should produce different signature")
			}

			sig4 := GenerateSignature(tt.secret+"x", tt.timestamp, tt.payloadJSON)
			if sig == sig4 {
				t.Error("different secret should produce different signature")
			}
		})
	}
}

func TestValidateSignature(t *testing.T) {
	secret := "test_secret"
	timestamp := time.Now().Unix()
	payload := []byte(`{"test":"data"}`)

	validSig := GenerateSignature(secret, timestamp, payload)

	tests := []struct {
		name      string
		signature string
		timestamp int64
		wantErr   error
	}{
		{
			name:      "valid signature",
			signature: validSig,
			timestamp: timestamp,
			wantErr:   nil,
		},
		{
			name:      "invalid signature",
			signature: "invalid",
			timestamp: timestamp,
			wantErr:   ErrInvalidSignature,
		},
		{
			name:      "expired timestamp",
			signature: GenerateSignature(secret, time.Now().Add(-10*time.Minute).Unix(), payload),
			timestamp: time.Now().Add(-10 * time.Minute).Unix(),
			wantErr:   ErrReplayWindowExceeded,
		},
		{
			name:      "future timestamp beyond window",
			signature: GenerateSignature(secret, time.Now().Add(10*time.Minute).Unix(), payload),
			timestamp: time.Now().Add(10 * time.Minute).Unix(),
			wantErr:   ErrReplayWindowExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignature(secret, tt.signature, tt.timestamp, payload, 5*time.Minute)
			if err != tt.wantErr {
				t.Errorf("ValidateSignature() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHashSecret(t *testing.T) {
	secret := "my_secret_key"
	hash := HashSecret(secret)

	if len(hash) != 64 {
		t.Errorf("hash length = %d, want 64", len(hash))
	}

	if hash != HashSecret(secret) {
		t.Error("hash is not deterministic")
	}

	if hash == HashSecret(secret+"x") {
		t.Error("different input should produce different hash")
	}
}

func TestGenerateSecret(t *testing.T) {
	s1, err := GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	s2, err := GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}

	// 32 bytes hex-encoded
	if len(s1) != 64 {
		t.Errorf("secret length = %d, want 64", len(s1))
	}
	if s1 == s2 {
		t.Error("secrets should be unique")
	}
}
