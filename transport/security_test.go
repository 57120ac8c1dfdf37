package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecureDefault_StrictAndModernOnly(t *testing.T) {
	p := SecureDefault()
	assert.Equal(t, StrictKnownHosts, p.HostKeyPolicy)
	assert.NotContains(t, p.Ciphers, "3des-cbc")
	assert.NotContains(t, p.MACs, "hmac-sha1")
}

func TestBalanced_AcceptsNewAndWidensAlgorithms(t *testing.T) {
	p := Balanced()
	assert.Equal(t, AcceptNew, p.HostKeyPolicy)
	assert.Contains(t, p.Ciphers, "aes128-ctr")
	assert.Subset(t, p.KeyExchanges, SecureDefault().KeyExchanges)
}

func TestLegacyCompatible_PermissiveAndFullAlgorithmSet(t *testing.T) {
	p := LegacyCompatible()
	assert.Equal(t, Permissive, p.HostKeyPolicy)
	assert.Contains(t, p.Ciphers, "3des-cbc")
	assert.Contains(t, p.MACs, "hmac-sha1")
	assert.Subset(t, p.Ciphers, Balanced().Ciphers)
}
