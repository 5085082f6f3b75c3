package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "verivote/pkg/domain-errors"
)

// =============================================================================
// NIK Format Validation Tests
// =============================================================================
// Justification: the format check is the cheapest rejection in the pipeline
// and the only one that never reaches the provider. The designated test
// identifiers must pass it even though they match patterns the registry
// never issues.

func TestValidateNIK(t *testing.T) {
	t.Run("valid identifiers", func(t *testing.T) {
		for _, nik := range []string{
			"3174012345678901", // Jakarta prefix
			"5171234567890123", // Bali prefix
			"1101456789012345", // Aceh prefix
		} {
			assert.NoError(t, ValidateNIK(nik), nik)
		}
	})

	t.Run("test identifiers bypass pattern checks", func(t *testing.T) {
		// Ascending run and repeated zeros would normally be rejected.
		assert.NoError(t, ValidateNIK(TestNIKAlwaysValid))
		assert.NoError(t, ValidateNIK(TestNIKAlwaysInvalid))
	})

	t.Run("wrong length", func(t *testing.T) {
		assert.Error(t, ValidateNIK(""))
		assert.Error(t, ValidateNIK("317401234567890"))   // 15
		assert.Error(t, ValidateNIK("31740123456789012")) // 17
	})

	t.Run("non-numeric", func(t *testing.T) {
		assert.Error(t, ValidateNIK("31740123456789ab"))
		assert.Error(t, ValidateNIK("3174 1234567890 "))
	})

	t.Run("degenerate patterns", func(t *testing.T) {
		assert.Error(t, ValidateNIK("1111111111111111")) // repeated digit
		assert.Error(t, ValidateNIK("2345678901234567")) // ascending mod 10
		assert.Error(t, ValidateNIK("9876543210987654")) // descending mod 10
	})

	t.Run("unknown province prefix", func(t *testing.T) {
		assert.Error(t, ValidateNIK("9974012345678901"))
		assert.Error(t, ValidateNIK("0574012345678901"))
	})

	t.Run("rejections carry the invalid format reason", func(t *testing.T) {
		err := ValidateNIK("1111111111111111")
		var de *dErrors.Error
		assert.ErrorAs(t, err, &de)
		assert.Equal(t, dErrors.CodeInvalidInput, de.Code)
		assert.Equal(t, InvalidFormatReason, de.Message)
	})
}
