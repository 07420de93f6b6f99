// Package gpg signs and verifies release checksum indexes with OpenPGP keys.
package gpg

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Signer produces detached armored signatures over release checksum
// indexes. Keys are only ever loaded from local files; nothing reaches a
// keyserver.
type Signer struct {
	entity *openpgp.Entity
}

// NewSigner wraps a signing entity. The entity must carry a decrypted
// private key.
func NewSigner(entity *openpgp.Entity) *Signer {
	return &Signer{entity: entity}
}

// LoadSignerFromFile reads a private key (armored or binary) from disk.
func LoadSignerFromFile(keyPath string) (*Signer, error) {
	entities, err := readKeyRingFile(keyPath)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if e.PrivateKey != nil {
			if e.PrivateKey.Encrypted {
				return nil, fmt.Errorf("signing key in %s is passphrase-protected", keyPath)
			}
			return NewSigner(e), nil
		}
	}
	return nil, fmt.Errorf("no private key found in %s", keyPath)
}

// Sign returns a detached armored signature over data.
func (s *Signer) Sign(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(data), nil); err != nil {
		return nil, fmt.Errorf("failed to sign checksum index: %w", err)
	}
	return buf.Bytes(), nil
}

// Verifier checks detached signatures against a public keyring.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier wraps an existing keyring.
func NewVerifier(keyring openpgp.EntityList) *Verifier {
	return &Verifier{keyring: keyring}
}

// LoadVerifierFromFile reads a public keyring (armored or binary) from disk.
func LoadVerifierFromFile(keyPath string) (*Verifier, error) {
	entities, err := readKeyRingFile(keyPath)
	if err != nil {
		return nil, err
	}
	return NewVerifier(entities), nil
}

// Verify checks a detached armored signature over data.
func (v *Verifier) Verify(data, signature []byte) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("no keys in keyring")
	}
	_, err := openpgp.CheckArmoredDetachedSignature(
		v.keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}

// VerifyFile checks the detached signature file sigPath over the contents of
// dataPath.
func (v *Verifier) VerifyFile(dataPath, sigPath string) error {
	//nolint:gosec // G304: dataPath is a published release file
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return fmt.Errorf("failed to read signed file: %w", err)
	}
	//nolint:gosec // G304: sigPath is a published release file
	sig, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to read signature file: %w", err)
	}
	return v.Verify(data, sig)
}

// readKeyRingFile reads an armored keyring, falling back to binary format.
func readKeyRingFile(keyPath string) (openpgp.EntityList, error) {
	//nolint:gosec // G304: keyPath is user-provided for key import
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, seekErr := f.Seek(0, 0); seekErr != nil {
			return nil, fmt.Errorf("failed to reset key file: %w", seekErr)
		}
		entities, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found in %s", keyPath)
	}
	return entities, nil
}
