package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature_Valid(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"imp_uid":"imp_1","merchant_uid":"order-1","status":"paid"}`)

	sig := SignBody(secret, body)

	assert.True(t, VerifySignature(secret, body, sig))
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"imp_uid":"imp_1"}`)

	sig := SignBody("secret-a", body)

	assert.False(t, VerifySignature("secret-b", body, sig))
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"amount":100}`)

	sig := SignBody(secret, body)

	assert.False(t, VerifySignature(secret, []byte(`{"amount":999}`), sig))
}

func TestVerifySignature_EmptySignature(t *testing.T) {
	assert.False(t, VerifySignature("secret", []byte("body"), ""))
}

func TestVerifySignature_GarbageSignature(t *testing.T) {
	assert.False(t, VerifySignature("secret", []byte("body"), "not-hex-at-all"))
}
