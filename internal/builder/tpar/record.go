package tpar

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RecordLength is the fixed length of every record, without the line terminator.
const RecordLength = 996

// field appends fixed-width values to one record.
type field struct {
	b   strings.Builder
	err error
}

func newRecord(id string) *field {
	f := &field{}
	f.numeric(fmt.Sprintf("%d", RecordLength), 4)
	f.alpha(id, len(id))
	return f
}

// alpha writes s left justified and space filled, cut to width.
func (f *field) alpha(s string, width int) *field {
	s = ascii(s)
	if len(s) > width {
		s = s[:width]
	}
	f.b.WriteString(s)
	f.b.WriteString(strings.Repeat(" ", width-len(s)))
	return f
}

// numeric writes digits right justified and zero filled. Blank values are written
// as spaces; values wider than width are an error.
func (f *field) numeric(s string, width int) *field {
	if s == "" {
		f.b.WriteString(strings.Repeat(" ", width))
		return f
	}
	if len(s) > width {
		if f.err == nil {
			f.err = fmt.Errorf("value %s does not fit in %d digits", s, width)
		}
		s = s[len(s)-width:]
	}
	f.b.WriteString(strings.Repeat("0", width-len(s)))
	f.b.WriteString(s)
	return f
}

// dollars writes an amount in whole dollars. Amounts are first rounded to cents,
// then the cents are dropped. Negative amounts are an error.
func (f *field) dollars(d decimal.Decimal, width int) *field {
	whole := d.Round(2).Truncate(0)
	if whole.IsNegative() {
		if f.err == nil {
			f.err = fmt.Errorf("negative amount %s", d.String())
		}
		whole = decimal.Zero
	}
	return f.numeric(whole.String(), width)
}

// finish pads the record with the filler and checks its length.
func (f *field) finish() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.b.Len() > RecordLength {
		return "", fmt.Errorf("record is %d characters long, expected %d", f.b.Len(), RecordLength)
	}
	f.b.WriteString(strings.Repeat(" ", RecordLength-f.b.Len()))
	out := f.b.String()
	if len(out) != RecordLength {
		return "", fmt.Errorf("record is %d characters long, expected %d", len(out), RecordLength)
	}
	return out, nil
}

// ascii replaces every rune outside printable ASCII with a space so byte length
// equals character length.
func ascii(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return ' '
		}
		return r
	}, s)
}
