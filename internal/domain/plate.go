package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Norwegian plates: two letters from the extended alphabet followed by 4 or 5 digits.
var norwegianPlatePattern = regexp.MustCompile(`^[A-ZÆØÅ]{2}[0-9]{4,5}$`)

var plateSeparators = strings.NewReplacer(" ", "", "-", "")

// NormalizePlate strips spaces and hyphens from input and checks the result
// against the national plate format. The returned error wraps
// ErrInvalidPlateFormat.
func NormalizePlate(input string) (plate string, err error) {
	if strings.TrimSpace(input) == "" {
		err = fmt.Errorf("%w: plate is empty", ErrInvalidPlateFormat)
		return
	}
	candidate := plateSeparators.Replace(input)
	if !norwegianPlatePattern.MatchString(candidate) {
		err = fmt.Errorf("%w: %q", ErrInvalidPlateFormat, input)
		return
	}
	plate = candidate
	return
}
