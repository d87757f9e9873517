package gtfstables

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type FieldKind int

const (
	KindText FieldKind = iota
	KindDecimal
	KindInteger
	KindEnum
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindDecimal:
		return "decimal"
	case KindInteger:
		return "integer"
	case KindEnum:
		return "enum"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Value is a typed field value. Which of Text, Int and Decimal is meaningful
// depends on the FieldKind of the descriptor that produced it.
type Value struct {
	Null    bool
	Text    string
	Int     int64
	Decimal decimal.Decimal
}

func NullValue() Value                     { return Value{Null: true} }
func TextValue(s string) Value             { return Value{Text: s} }
func IntValue(n int64) Value               { return Value{Int: n} }
func DecimalValue(d decimal.Decimal) Value { return Value{Decimal: d} }

// FieldDescriptor describes one column of a record type.
//
// Required means the column must appear in the header. Nullable means an empty
// cell is read as null; for every other field an empty cell is invalid.
// Default is the raw text used when the column is missing from the header
// entirely. It is never applied to a present-but-empty cell.
type FieldDescriptor struct {
	Name     string
	Kind     FieldKind
	Required bool
	Nullable bool
	Default  string

	// Text
	MaxLength int
	Pattern   *regexp.Regexp

	// Decimal
	Scale     int32
	MaxDigits int

	// Decimal and Integer
	NonNegative bool

	// Enum
	Choices []int64
}

var decimalRegex = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)
var integerRegex = regexp.MustCompile(`^-?\d+$`)

// Coerce converts raw cell text into a typed value.
func (f *FieldDescriptor) Coerce(raw string) (Value, error) {
	if raw == "" {
		if f.Nullable {
			return NullValue(), nil
		}
		return Value{}, errors.New("value is required")
	}

	var v Value
	switch f.Kind {
	case KindText:
		v = TextValue(raw)

	case KindDecimal:
		s := strings.TrimSpace(raw)
		if !decimalRegex.MatchString(s) {
			return Value{}, errors.New("not a decimal number")
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Value{}, errors.New("not a decimal number")
		}
		v = DecimalValue(d)

	case KindInteger, KindEnum:
		s := strings.TrimSpace(raw)
		if !integerRegex.MatchString(s) {
			return Value{}, errors.New("not an integer")
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, errors.New("integer out of range")
		}
		v = IntValue(n)

	default:
		panic(fmt.Sprintf("field %s: unknown kind %s", f.Name, f.Kind))
	}

	if err := f.Check(v); err != nil {
		return Value{}, err
	}
	return v, nil
}

// Check validates an already typed value against the descriptor's constraints.
func (f *FieldDescriptor) Check(v Value) error {
	if v.Null {
		if !f.Nullable {
			return errors.New("value is required")
		}
		return nil
	}

	switch f.Kind {
	case KindText:
		if v.Text == "" {
			return errors.New("value is required")
		}
		if f.MaxLength > 0 && len([]rune(v.Text)) > f.MaxLength {
			return fmt.Errorf("longer than %d characters", f.MaxLength)
		}
		if f.Pattern != nil && !f.Pattern.MatchString(v.Text) {
			return fmt.Errorf("does not match %s", f.Pattern)
		}

	case KindDecimal:
		if f.NonNegative && v.Decimal.IsNegative() {
			return errors.New("must not be negative")
		}
		if !v.Decimal.Equal(v.Decimal.Truncate(f.Scale)) {
			return fmt.Errorf("more than %d decimal places", f.Scale)
		}
		if f.MaxDigits > 0 {
			whole := v.Decimal.Abs().Truncate(0).String()
			if len(whole) > f.MaxDigits-int(f.Scale) {
				return fmt.Errorf("more than %d digits", f.MaxDigits)
			}
		}

	case KindInteger:
		if f.NonNegative && v.Int < 0 {
			return errors.New("must not be negative")
		}

	case KindEnum:
		if !slices.Contains(f.Choices, v.Int) {
			return fmt.Errorf("must be one of %s", f.choicesText())
		}
	}
	return nil
}

// Format renders a value the way it is written to a text table.
func (f *FieldDescriptor) Format(v Value) string {
	if v.Null {
		return ""
	}
	switch f.Kind {
	case KindText:
		return v.Text
	case KindDecimal:
		return v.Decimal.StringFixed(f.Scale)
	case KindInteger, KindEnum:
		return strconv.FormatInt(v.Int, 10)
	default:
		panic(fmt.Sprintf("field %s: unknown kind %s", f.Name, f.Kind))
	}
}

func (f *FieldDescriptor) choicesText() string {
	var parts []string
	for _, c := range f.Choices {
		parts = append(parts, strconv.FormatInt(c, 10))
	}
	if f.Nullable {
		parts = append(parts, "empty")
	}
	return strings.Join(parts, ", ")
}
