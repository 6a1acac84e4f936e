// Package receipt produces and verifies signed settlement receipts for
// finalized auction rounds. A receipt is a CBOR payload wrapped in a
// COSE_Sign1 envelope, signed with the house key so external indexers can
// check a settlement offline.
package receipt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// SettlementReceipt is the signed record of one finalized round.
type SettlementReceipt struct {
	TokenID         uint64    `cbor:"token_id"`
	Winner          string    `cbor:"winner"`
	Amount          string    `cbor:"amount"`
	ProceedsAccount string    `cbor:"proceeds_account"`
	SettledAt       time.Time `cbor:"settled_at"`
	Nonce           string    `cbor:"nonce"`
}

// Signer holds the house's ECDSA key pair for receipt signing.
type Signer struct {
	privateKey *ecdsa.PrivateKey // Keep private - sensitive!
	PublicKey  *ecdsa.PublicKey
}

// NewSigner creates a Signer with a fresh P-256 key pair.
func NewSigner() (*Signer, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	return &Signer{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// PublicKeyPEM returns the verification key in PEM format.
func (s *Signer) PublicKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(s.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}
	return string(pem.EncodeToMemory(pemBlock)), nil
}

// Sign stamps the receipt with a fresh nonce and wraps it in a signed
// COSE_Sign1 envelope. Returns the raw COSE bytes.
func (s *Signer) Sign(rcpt SettlementReceipt) ([]byte, error) {
	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate receipt nonce: %w", err)
	}
	rcpt.Nonce = nonce

	payload, err := cbor.Marshal(rcpt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal receipt payload: %w", err)
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("create COSE signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	msg.Payload = payload
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("sign receipt: %w", err)
	}

	coseBytes, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("marshal signed receipt: %w", err)
	}
	return coseBytes, nil
}

func generateNonce() (string, error) {
	randomBytes := make([]byte, 32) // 256 bits of entropy
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("entropy generation failed: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
