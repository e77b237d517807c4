// Package fingerprint derives stable, non-reversible device signatures from
// request characteristics. Signatures bind an issued credential to the
// browser and coarse network location that requested it.
package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Generator derives device and IP hashes under a server-side salt
type Generator struct {
	salt []byte
}

// NewGenerator creates a Generator with the given secret salt
func NewGenerator(salt []byte) *Generator {
	return &Generator{salt: salt}
}

// Generate returns a hex hash over the user agent, accept-language header
// and the truncated client IP. Missing inputs contribute empty strings;
// that weakens uniqueness but never fails.
func (g *Generator) Generate(userAgent, acceptLanguage, ip string) string {
	return g.hash(userAgent + "|" + acceptLanguage + "|" + TruncateIP(ip))
}

// IPHash returns a hex hash of the raw IP alone
func (g *Generator) IPHash(ip string) string {
	return g.hash(ip)
}

func (g *Generator) hash(input string) string {
	mac := hmac.New(sha256.New, g.salt)
	mac.Write([]byte(input))
	return hex.EncodeToString(mac.Sum(nil))
}

// TruncateIP drops everything after the last separator of the address,
// keeping only the network-ish portion. "192.168.1.42" becomes
// "192.168.1." and "2001:db8::1" becomes "2001:db8::". Addresses with no
// separator pass through unchanged.
func TruncateIP(ip string) string {
	idx := strings.LastIndexAny(ip, ".:")
	if idx < 0 {
		return ip
	}
	return ip[:idx+1]
}
