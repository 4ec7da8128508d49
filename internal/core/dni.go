package core

import (
	"fmt"
	"strconv"
	"strings"
)

const dniLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// NormalizeDNI is the history grouping key: trimmed and upper-cased.
func NormalizeDNI(dni string) string {
	return strings.ToUpper(strings.TrimSpace(dni))
}

// ValidateDNI checks a Spanish DNI (8 digits + letter) or NIE (X/Y/Z + 7
// digits + letter) against its check letter.
func ValidateDNI(dni string) error {
	s := strings.ReplaceAll(NormalizeDNI(dni), "-", "")
	if len(s) != 9 {
		return fmt.Errorf("%w: %q must have 9 characters", ErrInvalidDNI, dni)
	}
	switch s[0] {
	case 'X':
		s = "0" + s[1:]
	case 'Y':
		s = "1" + s[1:]
	case 'Z':
		s = "2" + s[1:]
	}
	n, err := strconv.Atoi(s[:8])
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDNI, dni)
	}
	if dniLetters[n%23] != s[8] {
		return fmt.Errorf("%w: %q", ErrInvalidDNI, dni)
	}
	return nil
}
