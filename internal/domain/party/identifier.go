// Package party validates and canonicalizes jurisdiction-specific party identifiers.
package party

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidLength   = errors.New("invalid length")
	ErrInvalidFormat   = errors.New("invalid format")
	ErrInvalidChecksum = errors.New("invalid checksum")
)

// Identifier is one identifier scheme.
type Identifier interface {
	// Canonical strips separators and applies the scheme's casing.
	Canonical(raw string) string
	Validate(raw string) error
	SchemeID() string
}

var separators = strings.NewReplacer(" ", "", ".", "", "-", "", "/", "")

func compact(raw string) string {
	return strings.ToUpper(separators.Replace(strings.TrimSpace(raw)))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func luhnValid(s string) bool {
	sum := 0
	for i := 0; i < len(s); i++ {
		d := int(s[len(s)-1-i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

func digitsOfLength(value string, lengths ...int) error {
	if !isDigits(value) {
		return ErrInvalidFormat
	}
	for _, l := range lengths {
		if len(value) == l {
			return nil
		}
	}
	return ErrInvalidLength
}

// SIREN is the French 9-digit enterprise number.
type SIREN struct{}

func (SIREN) Canonical(raw string) string { return compact(raw) }
func (SIREN) SchemeID() string            { return "0002" }
func (s SIREN) Validate(raw string) error {
	v := s.Canonical(raw)
	if err := digitsOfLength(v, 9); err != nil {
		return err
	}
	if !luhnValid(v) {
		return ErrInvalidChecksum
	}
	return nil
}

// SIRET is the French 14-digit establishment number.
type SIRET struct{}

func (SIRET) Canonical(raw string) string { return compact(raw) }
func (SIRET) SchemeID() string            { return "0009" }
func (s SIRET) Validate(raw string) error {
	v := s.Canonical(raw)
	if err := digitsOfLength(v, 14); err != nil {
		return err
	}
	if !luhnValid(v) {
		return ErrInvalidChecksum
	}
	return nil
}

// SIRENFromSIRET returns the legal entity part of an establishment number.
func SIRENFromSIRET(siret string) string {
	v := compact(siret)
	if len(v) != 14 {
		return ""
	}
	return v[:9]
}

var vatPattern = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z+*]{2,13}$`)

// VAT is an EU style VAT number with its country prefix.
type VAT struct{}

func (VAT) Canonical(raw string) string { return compact(raw) }
func (VAT) SchemeID() string            { return "VAT" }
func (v VAT) Validate(raw string) error {
	if !vatPattern.MatchString(v.Canonical(raw)) {
		return ErrInvalidFormat
	}
	return nil
}

// ABN is the Australian Business Number.
type ABN struct{}

var abnWeights = []int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}

func (ABN) Canonical(raw string) string { return compact(raw) }
func (ABN) SchemeID() string            { return "0151" }
func (a ABN) Validate(raw string) error {
	v := a.Canonical(raw)
	if err := digitsOfLength(v, 11); err != nil {
		return err
	}
	sum := 0
	for i, w := range abnWeights {
		d := int(v[i] - '0')
		if i == 0 {
			d--
		}
		sum += d * w
	}
	if sum%89 != 0 {
		return ErrInvalidChecksum
	}
	return nil
}

// NIP is the Polish tax identification number.
type NIP struct{}

var nipWeights = []int{6, 5, 7, 2, 3, 4, 5, 6, 7}

func (NIP) Canonical(raw string) string { return strings.TrimPrefix(compact(raw), "PL") }
func (NIP) SchemeID() string            { return "NIP" }
func (n NIP) Validate(raw string) error {
	v := n.Canonical(raw)
	if err := digitsOfLength(v, 10); err != nil {
		return err
	}
	sum := 0
	for i, w := range nipWeights {
		sum += int(v[i]-'0') * w
	}
	check := sum % 11
	if check == 10 || check != int(v[9]-'0') {
		return ErrInvalidChecksum
	}
	return nil
}

// CIF is the Romanian fiscal code.
type CIF struct{}

const cifKey = "753217532"

func (CIF) Canonical(raw string) string { return strings.TrimPrefix(compact(raw), "RO") }
func (CIF) SchemeID() string            { return "RO:CIF" }
func (c CIF) Validate(raw string) error {
	v := c.Canonical(raw)
	if !isDigits(v) {
		return ErrInvalidFormat
	}
	if len(v) < 2 || len(v) > 10 {
		return ErrInvalidLength
	}
	body := v[:len(v)-1]
	key := cifKey[len(cifKey)-len(body):]
	sum := 0
	for i := range body {
		sum += int(body[i]-'0') * int(key[i]-'0')
	}
	check := sum * 10 % 11
	if check == 10 {
		check = 0
	}
	if check != int(v[len(v)-1]-'0') {
		return ErrInvalidChecksum
	}
	return nil
}

// NPWP is the Indonesian taxpayer number.
type NPWP struct{}

func (NPWP) Canonical(raw string) string { return compact(raw) }
func (NPWP) SchemeID() string            { return "NPWP" }
func (n NPWP) Validate(raw string) error {
	return digitsOfLength(n.Canonical(raw), 15, 16)
}

// Check validates raw against id and describes the failure for a validator message.
func Check(id Identifier, label, raw string) string {
	if err := id.Validate(raw); err != nil {
		return fmt.Sprintf("%s %q is not valid: %v", label, raw, err)
	}
	return ""
}
