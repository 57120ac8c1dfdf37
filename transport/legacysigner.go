package transport

import (
	"crypto"
	"crypto/rsa"
	"io"

	"golang.org/x/crypto/ssh"
)

// legacyRSASigner forces the ssh-rsa signature algorithm for RSA keys.
// Older device firmware frequently speaks only ssh-rsa and rejects the
// newer rsa-sha2-256/512 algorithms modern ssh.Signer implementations
// prefer by default; the legacy_compatible security profile routes RSA
// signers through this wrapper.
type legacyRSASigner struct {
	signer ssh.Signer
}

func (s *legacyRSASigner) PublicKey() ssh.PublicKey { return s.signer.PublicKey() }

func (s *legacyRSASigner) Sign(rand io.Reader, data []byte) (*ssh.Signature, error) {
	if algSigner, ok := s.signer.(ssh.AlgorithmSigner); ok {
		return algSigner.SignWithAlgorithm(rand, data, ssh.KeyAlgoRSA)
	}

	if cs, ok := s.signer.(interface{ CryptoSigner() crypto.Signer }); ok {
		if rsaKey, ok := cs.CryptoSigner().(*rsa.PrivateKey); ok {
			h := crypto.SHA1.New()
			h.Write(data)
			sig, err := rsa.SignPKCS1v15(rand, rsaKey, crypto.SHA1, h.Sum(nil))
			if err != nil {
				return nil, err
			}
			return &ssh.Signature{Format: ssh.KeyAlgoRSA, Blob: sig}, nil
		}
	}

	return s.signer.Sign(rand, data)
}

func (s *legacyRSASigner) SignWithAlgorithm(rand io.Reader, data []byte, algorithm string) (*ssh.Signature, error) {
	if algSigner, ok := s.signer.(ssh.AlgorithmSigner); ok {
		return algSigner.SignWithAlgorithm(rand, data, ssh.KeyAlgoRSA)
	}
	return s.Sign(rand, data)
}

// wrapLegacySigner wraps signer so it always speaks ssh-rsa, if it is an
// RSA key; other key types are returned unchanged since they have no
// ssh-rsa/rsa-sha2 ambiguity to begin with.
func wrapLegacySigner(signer ssh.Signer) ssh.Signer {
	if signer == nil || signer.PublicKey() == nil {
		return signer
	}
	if signer.PublicKey().Type() == ssh.KeyAlgoRSA {
		return &legacyRSASigner{signer: signer}
	}
	return signer
}

var (
	_ ssh.Signer          = (*legacyRSASigner)(nil)
	_ ssh.AlgorithmSigner = (*legacyRSASigner)(nil)
)
