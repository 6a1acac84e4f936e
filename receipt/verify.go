package receipt

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// ParsePublicKeyPEM parses a PEM-encoded ECDSA verification key as produced
// by Signer.PublicKeyPEM.
func ParsePublicKeyPEM(pemStr string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("no PEM public key block found")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	ecdsaKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecdsaKey, nil
}

// Verify checks the COSE_Sign1 signature against the house key and decodes
// the settlement receipt payload.
func Verify(coseBytes []byte, publicKey *ecdsa.PublicKey) (*SettlementReceipt, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(coseBytes); err != nil {
		return nil, fmt.Errorf("parse COSE envelope: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, publicKey)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("receipt signature verification failed: %w", err)
	}

	var rcpt SettlementReceipt
	if err := cbor.Unmarshal(msg.Payload, &rcpt); err != nil {
		return nil, fmt.Errorf("decode receipt payload: %w", err)
	}
	return &rcpt, nil
}
