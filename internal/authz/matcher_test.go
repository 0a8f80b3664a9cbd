// AngelaMos | 2026
// matcher_test.go

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name     string
		required string
		granted  string
		want     bool
	}{
		{"exact match", "farms:read", "farms:read", true},
		{"resource wildcard", "farms:delete", "farms:*", true},
		{"global wildcard", "billing:update", "*:*", true},
		{"different resource", "farms:read", "orders:read", false},
		{"different action", "farms:read", "farms:write", false},
		{"wildcard on other resource", "farms:read", "orders:*", false},
		{"required without action", "farms", "farms:*", false},
		{"grant is narrower than requirement", "farms:*", "farms:read", false},
		{"empty grant", "farms:read", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.required, tt.granted))
		})
	}
}

func TestCan(t *testing.T) {
	granted := []string{"farms:read", "orders:*"}

	assert.True(t, Can("farms", "read", granted))
	assert.True(t, Can("orders", "delete", granted))
	assert.False(t, Can("farms", "delete", granted))
	assert.False(t, Can("billing", "read", granted))
	assert.False(t, Can("farms", "read", nil))
}
