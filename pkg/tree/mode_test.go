package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode_RoundTrip(t *testing.T) {
	// Every 12-bit value must survive a decode/encode round-trip.
	for m := uint32(0); m <= 0o7777; m++ {
		mode, err := ParseMode(m)
		require.NoError(t, err)
		assert.Equal(t, m, mode.Bits(), "mode %#o", m)
	}
}

func TestParseMode_RejectsOutOfRange(t *testing.T) {
	_, err := ParseMode(0o10000)
	assert.Error(t, err)

	_, err = ParseMode(0xFFFFFFFF)
	assert.Error(t, err)
}

func TestParseMode_Decode(t *testing.T) {
	mode, err := ParseMode(0o4640)
	require.NoError(t, err)

	assert.True(t, mode.Special.Setuid)
	assert.False(t, mode.Special.Setgid)
	assert.False(t, mode.Special.Sticky)

	assert.Equal(t, Perms{Read: true, Write: true}, mode.User)
	assert.Equal(t, Perms{Read: true}, mode.Group)
	assert.Equal(t, Perms{}, mode.Other)
}

func TestMode_String(t *testing.T) {
	tests := []struct {
		mode uint32
		want string
	}{
		{0o755, "rwxr-xr-x"},
		{0o600, "rw-------"},
		{0o400, "r--------"},
		{0o4755, "rwsr-xr-x"},
		{0o4644, "rwSr--r--"},
		{0o2711, "rwx--s--x"},
		{0o1777, "rwxrwxrwt"},
		{0o1666, "rw-rw-rwT"},
		{0, "---------"},
	}
	for _, tt := range tests {
		mode, err := ParseMode(tt.mode)
		require.NoError(t, err)
		assert.Equal(t, tt.want, mode.String(), "mode %#o", tt.mode)
	}
}

func TestAttr_PermissionPrecedence(t *testing.T) {
	attr := Attr{Perm: 0o640, UID: 1000, GID: 1000}

	// Owner uses the owner triple.
	assert.True(t, attr.CanRead(1000, 1000))
	assert.True(t, attr.CanWrite(1000, 1000))
	assert.False(t, attr.CanExecute(1000, 1000))

	// Group member uses the group triple even when the owner triple
	// would grant more.
	assert.True(t, attr.CanRead(1001, 1000))
	assert.False(t, attr.CanWrite(1001, 1000))

	// Everyone else uses the other triple.
	assert.False(t, attr.CanRead(1001, 1001))
	assert.False(t, attr.CanWrite(1001, 1001))
}

func TestAttr_OwnerBitsShadowGroupBits(t *testing.T) {
	// uid match takes precedence: a requester who is the owner gets the
	// owner bits even when the group bits are wider.
	attr := Attr{Perm: 0o060, UID: 500, GID: 500}
	assert.False(t, attr.CanRead(500, 500))
	assert.False(t, attr.CanWrite(500, 500))
}
