package transport

import "golang.org/x/crypto/ssh"

// HostKeyPolicy selects how aggressively a dial verifies the remote host
// key.
type HostKeyPolicy int

const (
	// StrictKnownHosts requires the remote key to already be present in a
	// known_hosts file; dial fails otherwise.
	StrictKnownHosts HostKeyPolicy = iota
	// AcceptNew accepts a host key seen for the first time, but rejects a
	// key that has changed. The accepted key is not written to known_hosts.
	AcceptNew
	// Permissive accepts any host key. Intended for legacy gear with no
	// known_hosts workflow; never the default.
	Permissive
)

// Profile bundles a host-key policy with the algorithm families a dial is
// willing to negotiate. The three named profiles below cover the spread
// from "modern gear, strict verification" to "decade-old gear, anything
// goes."
type Profile struct {
	Name          string
	HostKeyPolicy HostKeyPolicy
	KeyExchanges  []string
	Ciphers       []string
	MACs          []string
}

var (
	secureDefaultKEX = []string{"curve25519-sha256", "ecdh-sha2-nistp256", "ecdh-sha2-nistp384", "ecdh-sha2-nistp521"}
	balancedKEX      = append(append([]string{}, secureDefaultKEX...), "diffie-hellman-group14-sha256", "diffie-hellman-group16-sha512")
	legacyKEX        = append(append([]string{}, balancedKEX...), "diffie-hellman-group1-sha1", "diffie-hellman-group14-sha1")

	secureDefaultCiphers = []string{"aes128-gcm@openssh.com", "aes256-gcm@openssh.com", "chacha20-poly1305@openssh.com"}
	balancedCiphers      = append(append([]string{}, secureDefaultCiphers...), "aes128-ctr", "aes192-ctr", "aes256-ctr")
	legacyCiphers        = append(append([]string{}, balancedCiphers...), "aes128-cbc", "aes192-cbc", "aes256-cbc", "3des-cbc")

	secureDefaultMACs = []string{"hmac-sha2-256-etm@openssh.com", "hmac-sha2-512-etm@openssh.com"}
	balancedMACs      = append(append([]string{}, secureDefaultMACs...), "hmac-sha2-256", "hmac-sha2-512")
	legacyMACs        = append(append([]string{}, balancedMACs...), "hmac-sha1")
)

// SecureDefault requires known-hosts verification and only modern
// algorithms. The default profile for every new dial.
func SecureDefault() Profile {
	return Profile{
		Name:          "secure_default",
		HostKeyPolicy: StrictKnownHosts,
		KeyExchanges:  secureDefaultKEX,
		Ciphers:       secureDefaultCiphers,
		MACs:          secureDefaultMACs,
	}
}

// Balanced relaxes host-key policy to AcceptNew and widens the algorithm
// set with a handful of still-reasonable legacy choices.
func Balanced() Profile {
	return Profile{
		Name:          "balanced",
		HostKeyPolicy: AcceptNew,
		KeyExchanges:  balancedKEX,
		Ciphers:       balancedCiphers,
		MACs:          balancedMACs,
	}
}

// LegacyCompatible accepts any host key and enables the full legacy
// algorithm set, for gear too old to negotiate anything else.
func LegacyCompatible() Profile {
	return Profile{
		Name:          "legacy_compatible",
		HostKeyPolicy: Permissive,
		KeyExchanges:  legacyKEX,
		Ciphers:       legacyCiphers,
		MACs:          legacyMACs,
	}
}

func (p Profile) apply(cfg *ssh.ClientConfig) {
	cfg.Config = ssh.Config{
		KeyExchanges: p.KeyExchanges,
		Ciphers:      p.Ciphers,
		MACs:         p.MACs,
	}
}
