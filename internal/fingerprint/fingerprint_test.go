package fingerprint

import "testing"

func TestTruncateIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want string
	}{
		{name: "ipv4", ip: "192.168.1.42", want: "192.168.1."},
		{name: "ipv6", ip: "2001:db8::1", want: "2001:db8::"},
		{name: "no separator", ip: "localhost", want: "localhost"},
		{name: "empty", ip: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateIP(tt.ip); got != tt.want {
				t.Errorf("TruncateIP(%q) = %q, want %q", tt.ip, got, tt.want)
			}
		})
	}
}

func TestGenerator_Generate_Deterministic(t *testing.T) {
	g := NewGenerator([]byte("test-salt"))

	a := g.Generate("Mozilla/5.0", "en-US", "192.168.1.42")
	b := g.Generate("Mozilla/5.0", "en-US", "192.168.1.42")

	if a != b {
		t.Errorf("Generate() not deterministic: %q != %q", a, b)
	}
	if a == "" {
		t.Errorf("Generate() returned empty fingerprint")
	}
}

func TestGenerator_Generate_DistinguishesDevices(t *testing.T) {
	g := NewGenerator([]byte("test-salt"))
	base := g.Generate("Mozilla/5.0", "en-US", "192.168.1.42")

	if got := g.Generate("curl/8.0", "en-US", "192.168.1.42"); got == base {
		t.Errorf("Generate() ignored user agent change")
	}
	if got := g.Generate("Mozilla/5.0", "pl-PL", "192.168.1.42"); got == base {
		t.Errorf("Generate() ignored accept-language change")
	}
	if got := g.Generate("Mozilla/5.0", "en-US", "10.0.0.1"); got == base {
		t.Errorf("Generate() ignored network change")
	}
}

func TestGenerator_Generate_SameNetworkSameFingerprint(t *testing.T) {
	g := NewGenerator([]byte("test-salt"))

	// The last octet is dropped, so hosts in the same /24 share a fingerprint
	a := g.Generate("Mozilla/5.0", "en-US", "192.168.1.42")
	b := g.Generate("Mozilla/5.0", "en-US", "192.168.1.99")

	if a != b {
		t.Errorf("Generate() distinguished hosts inside the same network")
	}
}

func TestGenerator_Generate_MissingHeaders(t *testing.T) {
	g := NewGenerator([]byte("test-salt"))

	// Missing inputs degrade to empty strings but never fail
	got := g.Generate("", "", "")
	if got == "" {
		t.Errorf("Generate() with empty inputs should still produce a hash")
	}
}

func TestGenerator_SaltMatters(t *testing.T) {
	a := NewGenerator([]byte("salt-a")).Generate("Mozilla/5.0", "en-US", "192.168.1.42")
	b := NewGenerator([]byte("salt-b")).Generate("Mozilla/5.0", "en-US", "192.168.1.42")

	if a == b {
		t.Errorf("Generate() ignored the salt")
	}
}

func TestGenerator_IPHash(t *testing.T) {
	g := NewGenerator([]byte("test-salt"))

	a := g.IPHash("192.168.1.42")
	b := g.IPHash("192.168.1.42")
	c := g.IPHash("192.168.1.43")

	if a != b {
		t.Errorf("IPHash() not deterministic")
	}
	if a == c {
		t.Errorf("IPHash() should distinguish full addresses")
	}
	if a == g.Generate("Mozilla/5.0", "en-US", "192.168.1.42") {
		t.Errorf("IPHash() should differ from the device fingerprint")
	}
}
