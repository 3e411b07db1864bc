// Package export assembles, signs, and verifies case audit bundles.
package export

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/config"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/integrity"
)

// Algorithm names the signature scheme carried in every bundle.
const Algorithm = "hmac-sha256"

// hkdf parameters; changing either invalidates existing signatures.
var (
	signingSalt = []byte("autocomply-audit-export")
	signingInfo = []byte("bundle-signing-v1")
)

// Signature is the detached signature appended to a bundle.
type Signature struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// Signer signs canonicalized bundles with a key derived from the
// process-wide secret.
type Signer struct {
	key []byte
}

// NewSigner derives the signing key. Production refuses to run on the
// documented dev default or an empty secret.
func NewSigner(secret, environment string) (*Signer, error) {
	if environment == "prod" && (secret == "" || secret == config.DevSigningKey) {
		return nil, fault.New(fault.KindInternal, "AUDIT_SIGNING_KEY must be set to a non-default value in production")
	}
	if secret == "" {
		secret = config.DevSigningKey
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), signingSalt, signingInfo), key); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "derive signing key", err)
	}
	return &Signer{key: key}, nil
}

// Sign canonicalizes v (which must not contain a signature field) and
// returns the HMAC-SHA256 signature over the canonical bytes.
func (s *Signer) Sign(v any) (*Signature, error) {
	canonical, err := integrity.Canonicalize(v)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "canonicalize bundle", err)
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(canonical)
	return &Signature{
		Algorithm: Algorithm,
		Value:     hex.EncodeToString(mac.Sum(nil)),
	}, nil
}

// VerifyBundle checks a rendered bundle: recompute the canonical form
// minus the signature field, verify the HMAC, then require the embedded
// integrity check to have passed.
func (s *Signer) VerifyBundle(data []byte) error {
	var bundle map[string]any
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fault.Wrap(fault.KindBadRequest, "parse bundle", err)
	}

	rawSig, ok := bundle["signature"].(map[string]any)
	if !ok {
		return fault.New(fault.KindBadRequest, "bundle has no signature")
	}
	algorithm, _ := rawSig["algorithm"].(string)
	value, _ := rawSig["value"].(string)
	if algorithm != Algorithm {
		return fault.Newf(fault.KindBadRequest, "unsupported signature algorithm %q", algorithm)
	}
	delete(bundle, "signature")

	want, err := s.Sign(bundle)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(want.Value), []byte(value)) {
		return fault.New(fault.KindBadRequest, "signature mismatch")
	}

	check, _ := bundle["integrity_check"].(map[string]any)
	if valid, _ := check["is_valid"].(bool); !valid {
		return fault.New(fault.KindConflict, "bundle integrity check failed")
	}
	return nil
}
