package schema

import (
	"database/sql/driver"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Decimal is fixed-point text as returned by database drivers for
// NUMERIC, DECIMAL and CURRENCY columns. Sanitize converts it to a float.
type Decimal string

// Sanitize converts an arbitrary source-native scalar into a Value drawn from
// {Null, Bool, Int, Float, Text}. It is total: anything that cannot be
// converted becomes Null. Timestamps become ISO-8601 text and strings are
// folded to ASCII.
func Sanitize(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Null
	case Value:
		return sanitizeValue(x)
	case *Value:
		if x == nil {
			return Null
		}
		return sanitizeValue(*x)
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return sanitizeUint(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return sanitizeUint(x)
	case float32:
		return sanitizeFloat(float64(x))
	case float64:
		return sanitizeFloat(x)
	case Decimal:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		if err != nil {
			return sanitizeText(string(x))
		}
		return sanitizeFloat(f)
	case *big.Rat:
		if x == nil {
			return Null
		}
		f, _ := x.Float64()
		return sanitizeFloat(f)
	case *big.Float:
		if x == nil {
			return Null
		}
		f, _ := x.Float64()
		return sanitizeFloat(f)
	case *big.Int:
		if x == nil {
			return Null
		}
		if x.IsInt64() {
			return Int(x.Int64())
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return sanitizeFloat(f)
	case time.Time:
		if x.IsZero() {
			return Null
		}
		return Text(isoTime(x))
	case *time.Time:
		if x == nil || x.IsZero() {
			return Null
		}
		return Text(isoTime(*x))
	case string:
		return sanitizeText(x)
	case []byte:
		return sanitizeText(strings.ToValidUTF8(string(x), ""))
	case driver.Valuer:
		val, ok := driverValue(x)
		if !ok {
			return Null
		}
		if _, nested := val.(driver.Valuer); nested {
			return sanitizeOther(val)
		}
		return Sanitize(val)
	default:
		return sanitizeOther(x)
	}
}

func driverValue(x driver.Valuer) (val driver.Value, ok bool) {
	if isNilRef(x) {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			val, ok = nil, false
		}
	}()
	val, err := x.Value()
	return val, err == nil
}

// sanitizeOther formats a value of any other type as text. Nil references and
// failing String or Error methods give Null.
func sanitizeOther(x any) (v Value) {
	if isNilRef(x) {
		return Null
	}
	defer func() {
		if recover() != nil {
			v = Null
		}
	}()
	var s string
	switch t := x.(type) {
	case error:
		s = t.Error()
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(x)
	}
	if strings.Contains(s, "%!v(PANIC=") {
		return Null
	}
	return sanitizeText(s)
}

func isNilRef(x any) bool {
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func sanitizeValue(v Value) Value {
	switch v.kind {
	case KindFloat:
		return sanitizeFloat(v.f)
	case KindText:
		return sanitizeText(v.s)
	case KindTime:
		if v.t.IsZero() {
			return Null
		}
		return Text(isoTime(v.t))
	default:
		return v
	}
}

func sanitizeUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

func sanitizeFloat(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null
	}
	return Float(f)
}

func sanitizeText(s string) Value {
	if IsNullText(s) {
		return Null
	}
	return Text(ToASCII(s))
}

// IsNullText reports whether s is one of the missing-value markers: the empty
// string, "nan" or "n/a", compared case-insensitively.
func IsNullText(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "n/a":
		return true
	}
	return false
}

// ToASCII folds s to ASCII: accents are decomposed and dropped, and anything
// still outside ASCII is removed.
func ToASCII(s string) string {
	if isASCII(s) {
		return s
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return stripNonASCII(s)
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func stripNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] <= unicode.MaxASCII {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
