package models

import (
	"strings"

	dErrors "verivote/pkg/domain-errors"
)

// NIKLength is the fixed length of an Indonesian national identity number.
const NIKLength = 16

// Designated test identifiers. They skip the degenerate-pattern and province
// checks so they reach the provider, which answers them deterministically.
const (
	TestNIKAlwaysValid   = "1234567890123456"
	TestNIKAlwaysInvalid = "0000000000000000"
)

// ErrInvalidFormat is the failure reason recorded when the format check
// rejects a subject identifier before any provider call.
const InvalidFormatReason = "invalid format"

// provinceCodes are the 2-digit administrative region prefixes issued by the
// civil registry.
var provinceCodes = map[string]bool{
	"11": true, "12": true, "13": true, "14": true, "15": true,
	"16": true, "17": true, "18": true, "19": true, "21": true,
	"31": true, "32": true, "33": true, "34": true, "35": true,
	"36": true, "51": true, "52": true, "53": true,
	"61": true, "62": true, "63": true, "64": true, "65": true,
	"71": true, "72": true, "73": true, "74": true, "75": true, "76": true,
	"81": true, "82": true,
	"91": true, "92": true, "93": true, "94": true, "95": true, "96": true,
}

func isTestNIK(nik string) bool {
	return nik == TestNIKAlwaysValid || nik == TestNIKAlwaysInvalid
}

// ValidateNIK checks a subject identifier against the registry's known
// format: fixed length, numeric, a valid province prefix, and none of the
// degenerate patterns the registry never issues. It performs no I/O.
func ValidateNIK(nik string) error {
	if len(nik) != NIKLength {
		return dErrors.New(dErrors.CodeInvalidInput, InvalidFormatReason)
	}
	for _, c := range nik {
		if c < '0' || c > '9' {
			return dErrors.New(dErrors.CodeInvalidInput, InvalidFormatReason)
		}
	}
	if isTestNIK(nik) {
		return nil
	}
	if isDegenerate(nik) {
		return dErrors.New(dErrors.CodeInvalidInput, InvalidFormatReason)
	}
	if !provinceCodes[nik[:2]] {
		return dErrors.New(dErrors.CodeInvalidInput, InvalidFormatReason)
	}
	return nil
}

// isDegenerate rejects identifiers the registry never issues: a single
// repeated digit, or a straight ascending/descending digit run.
func isDegenerate(nik string) bool {
	if strings.Count(nik, nik[:1]) == len(nik) {
		return true
	}
	ascending, descending := true, true
	for i := 1; i < len(nik); i++ {
		prev, cur := int(nik[i-1]-'0'), int(nik[i]-'0')
		if cur != (prev+1)%10 {
			ascending = false
		}
		if cur != (prev+9)%10 {
			descending = false
		}
	}
	return ascending || descending
}
