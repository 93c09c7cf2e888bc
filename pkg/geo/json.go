package geo

import (
	"math"
	"strconv"
)

// Float is a float64 that serialises non-finite values (NaN, ±Inf) as
// JSON null instead of failing the encoder. Blocked edges carry infinite
// weights internally; those must never leak into a response as invalid
// JSON.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler. null decodes to zero.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}
