// Package serial generates and parses certificate serial numbers of the
// form SE-<PROGRAM>-<YYYYMM>-<8 hex chars>, e.g. SE-MCX-202402-ABC12345.
package serial

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const prefix = "SE"

var pattern = regexp.MustCompile(`^SE-[A-Z]{2,5}-\d{6}-[A-F0-9]{8}$`)

// Parts holds the decoded fields of a serial number.
type Parts struct {
	Prefix      string
	ProgramCode string
	Year        int
	Month       int
	UniqueID    string
}

// Generate returns a new serial number for the given program code. The
// random segment comes from crypto/rand so serials are not guessable.
func Generate(programCode string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(programCode))
	if len(code) < 2 || len(code) > 5 {
		return "", fmt.Errorf("program code %q must be 2 to 5 letters", programCode)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("program code %q must be 2 to 5 letters", programCode)
		}
	}

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	uniqueID := strings.ToUpper(hex.EncodeToString(buf))

	now := time.Now()
	return fmt.Sprintf("%s-%s-%04d%02d-%s", prefix, code, now.Year(), int(now.Month()), uniqueID), nil
}

// Validate reports whether the serial number matches the expected format.
func Validate(serialNumber string) bool {
	return pattern.MatchString(serialNumber)
}

// Parse decodes a serial number into its parts.
func Parse(serialNumber string) (Parts, error) {
	if !Validate(serialNumber) {
		return Parts{}, fmt.Errorf("invalid serial number format: %q", serialNumber)
	}

	segments := strings.Split(serialNumber, "-")
	dateCode := segments[2]
	year, err := strconv.Atoi(dateCode[:4])
	if err != nil {
		return Parts{}, fmt.Errorf("invalid year in serial number: %q", serialNumber)
	}
	month, err := strconv.Atoi(dateCode[4:6])
	if err != nil || month < 1 || month > 12 {
		return Parts{}, fmt.Errorf("invalid month in serial number: %q", serialNumber)
	}

	return Parts{
		Prefix:      segments[0],
		ProgramCode: segments[1],
		Year:        year,
		Month:       month,
		UniqueID:    segments[3],
	}, nil
}
