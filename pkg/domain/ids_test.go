package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "verivote/pkg/domain-errors"
)

// Justification: these parsers sit at trust boundaries; every externally
// supplied identifier passes through exactly one of them.

func TestNewRequestID(t *testing.T) {
	wallet := WalletAddress("0x00112233445566778899aabbccddeeff00112233")

	t.Run("is deterministic", func(t *testing.T) {
		a := NewRequestID("3174012345678901", wallet, 12345)
		b := NewRequestID("3174012345678901", wallet, 12345)
		assert.Equal(t, a, b)
	})

	t.Run("differs across inputs", func(t *testing.T) {
		base := NewRequestID("3174012345678901", wallet, 12345)
		assert.NotEqual(t, base, NewRequestID("3174012345678902", wallet, 12345))
		assert.NotEqual(t, base, NewRequestID("3174012345678901", wallet, 12346))
	})

	t.Run("does not leak the subject identifier", func(t *testing.T) {
		rid := NewRequestID("3174012345678901", wallet, 12345)
		assert.NotContains(t, rid.String(), "3174012345678901")
		assert.Len(t, rid.String(), 64)
	})
}

func TestParseRequestID(t *testing.T) {
	valid := strings.Repeat("ab", 32)

	t.Run("accepts a 64-char hex digest", func(t *testing.T) {
		rid, err := ParseRequestID(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, rid.String())
	})

	t.Run("rejects wrong length and non-hex", func(t *testing.T) {
		for _, input := range []string{"", "abc", valid + "ab", strings.Repeat("zz", 32)} {
			_, err := ParseRequestID(input)
			require.Error(t, err, input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestHashSubjectID(t *testing.T) {
	h := HashSubjectID("3174012345678901")
	assert.Len(t, h.String(), 64)
	assert.Equal(t, h, HashSubjectID("3174012345678901"))
	assert.NotEqual(t, h, HashSubjectID("3174012345678902"))
}

func TestParseWalletAddress(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		w, err := ParseWalletAddress("  0x00112233445566778899AABBCCDDEEFF00112233 ")
		require.NoError(t, err)
		assert.Equal(t, "0x00112233445566778899aabbccddeeff00112233", w.String())
	})

	t.Run("rejects malformed addresses", func(t *testing.T) {
		for _, input := range []string{
			"",
			"00112233445566778899aabbccddeeff00112233",    // no prefix
			"0x0011223344",                                 // too short
			"0x00112233445566778899aabbccddeeff001122334",  // odd length
			"0x00112233445566778899aabbccddeeff0011zzzz",   // not hex
			"0x00112233445566778899aabbccddeeff0011223344", // too long
		} {
			_, err := ParseWalletAddress(input)
			require.Error(t, err, input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestParseElectionID(t *testing.T) {
	t.Run("empty is the unscoped zero value", func(t *testing.T) {
		e, err := ParseElectionID("  ")
		require.NoError(t, err)
		assert.True(t, e.IsNil())
	})

	t.Run("accepts a normal identifier", func(t *testing.T) {
		e, err := ParseElectionID("election-2026")
		require.NoError(t, err)
		assert.Equal(t, "election-2026", e.String())
	})

	t.Run("rejects oversized identifiers", func(t *testing.T) {
		_, err := ParseElectionID(strings.Repeat("x", 65))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
