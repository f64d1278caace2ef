package waitlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractIdentity(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"single address", "203.0.113.7", "203.0.113.7"},
		{"proxy chain uses first hop", "203.0.113.7, 10.0.0.1, 10.0.0.2", "203.0.113.7"},
		{"whitespace trimmed", "  2001:db8::1 ,10.0.0.1", "2001:db8::1"},
		{"missing header", "", "unknown"},
		{"empty first entry", " , 10.0.0.1", "unknown"},
		{"opaque value kept as is", "not-an-ip", "not-an-ip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractIdentity(tt.header))
		})
	}
}
