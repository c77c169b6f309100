package postgresql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jakarta", "%Jakarta%"},
		{"50%", `%50\%%`},
		{"floor_2", `%floor\_2%`},
		{`C:\HQ`, `%C:\\HQ%`},
		{"", "%%"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsPattern(tt.in), tt.in)
	}
}
