package allocation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Percentage is a risk threshold. Only the four values below exist.
type Percentage uint8

const (
	Percentage60 Percentage = 60
	Percentage65 Percentage = 65
	Percentage70 Percentage = 70
	Percentage75 Percentage = 75
)

// MinPercentage and MaxPercentage bound the closed set.
const (
	MinPercentage = Percentage60
	MaxPercentage = Percentage75
)

var percentages = []Percentage{Percentage60, Percentage65, Percentage70, Percentage75}

var hundred = decimal.NewFromInt(100)

// Percentages returns the closed set in ascending order.
func Percentages() []Percentage {
	out := make([]Percentage, len(percentages))
	copy(out, percentages)
	return out
}

// ParsePercentage accepts "0.75", "75" or "75%".
func ParsePercentage(s string) (Percentage, error) {
	raw := strings.TrimSpace(s)
	percent := strings.HasSuffix(raw, "%")
	raw = strings.TrimSuffix(raw, "%")

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("parse percentage %q: %w", s, err)
	}
	if !percent && d.LessThanOrEqual(decimal.NewFromInt(1)) {
		d = d.Mul(hundred)
	}

	for _, p := range percentages {
		if d.Equal(decimal.NewFromInt(int64(p))) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unsupported percentage %q", s)
}

// IsGreaterThan is a strict comparison of the underlying values.
func (p Percentage) IsGreaterThan(other Percentage) bool {
	return p > other
}

// Value is the canonical fraction, e.g. "0.75".
func (p Percentage) Value() string {
	return decimal.NewFromInt(int64(p)).Div(hundred).StringFixed(2)
}

func (p Percentage) String() string {
	return fmt.Sprintf("%d%%", uint8(p))
}

// MarshalText renders the canonical fraction.
func (p Percentage) MarshalText() ([]byte, error) {
	return []byte(p.Value()), nil
}

func (p *Percentage) UnmarshalText(text []byte) error {
	parsed, err := ParsePercentage(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
