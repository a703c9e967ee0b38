package ipfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolverURL(t *testing.T) {
	r := NewResolver("")

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"scheme stripped", "ipfs://QmHash", DefaultGateway + "QmHash"},
		{"scheme stripped once", "ipfs://ipfs://x", DefaultGateway + "ipfs://x"},
		{"bare reference appended", "QmHash", DefaultGateway + "QmHash"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.URL(tt.ref))
		})
	}
}

func TestResolverCustomGateway(t *testing.T) {
	r := NewResolver("https://gw.example/ipfs")
	assert.Equal(t, "https://gw.example/ipfs/abc", r.URL("ipfs://abc"))
}

func TestURI(t *testing.T) {
	assert.Equal(t, "ipfs://abc123", URI("abc123"))
	assert.Equal(t, "", URI(""))
}
