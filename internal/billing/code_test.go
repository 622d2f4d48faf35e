package billing

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCouponCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{12}$`)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := newCouponCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Len(t, seen, 200)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABC123", NormalizeCode("  abc123 "))
	assert.Equal(t, "", NormalizeCode("   "))
}
