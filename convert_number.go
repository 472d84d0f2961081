package dynacodec

import (
	"math"
	"reflect"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// intConverter maps signed integers of any width to N.
type intConverter struct {
	typ  reflect.Type
	bits int
}

func (c intConverter) dataType() DataType { return DataTypeNumber }

func (c intConverter) format(src reflect.Value) (string, error) {
	return strconv.FormatInt(src.Int(), 10), nil
}

func (c intConverter) parse(s string, dst reflect.Value) error {
	if !isIntegerText(s) {
		return conversionErr(c.typ, nil, "invalid integer %q", s)
	}
	n, err := strconv.ParseInt(s, 10, c.bits)
	if err != nil {
		return conversionErr(c.typ, err, "integer %q out of range", s)
	}
	dst.SetInt(n)
	return nil
}

func (c intConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	return readTextCodec(c, c.typ, av, dst)
}

func (c intConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return writeTextCodec(c, src)
}

func (c intConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	return readTextCodecJSON(c, c.typ, r, dst)
}

func (c intConverter) WriteJSON(w *Writer, src reflect.Value) error {
	return writeTextCodecJSON(c, w, src)
}

// uintConverter maps unsigned integers of any width to N.
type uintConverter struct {
	typ  reflect.Type
	bits int
}

func (c uintConverter) dataType() DataType { return DataTypeNumber }

func (c uintConverter) format(src reflect.Value) (string, error) {
	return strconv.FormatUint(src.Uint(), 10), nil
}

func (c uintConverter) parse(s string, dst reflect.Value) error {
	if !isIntegerText(s) {
		return conversionErr(c.typ, nil, "invalid integer %q", s)
	}
	if s[0] == '-' {
		return conversionErr(c.typ, nil, "negative value %q for unsigned type", s)
	}
	n, err := strconv.ParseUint(s, 10, c.bits)
	if err != nil {
		return conversionErr(c.typ, err, "integer %q out of range", s)
	}
	dst.SetUint(n)
	return nil
}

func (c uintConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	return readTextCodec(c, c.typ, av, dst)
}

func (c uintConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return writeTextCodec(c, src)
}

func (c uintConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	return readTextCodecJSON(c, c.typ, r, dst)
}

func (c uintConverter) WriteJSON(w *Writer, src reflect.Value) error {
	return writeTextCodecJSON(c, w, src)
}

// floatConverter maps float32 and float64 to N. Values are written in plain decimal
// notation with the fewest digits that round-trip.
type floatConverter struct {
	typ  reflect.Type
	bits int
}

func (c floatConverter) dataType() DataType { return DataTypeNumber }

func (c floatConverter) format(src reflect.Value) (string, error) {
	f := src.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", conversionErr(c.typ, nil, "%v has no number representation", f)
	}
	return strconv.FormatFloat(f, 'f', -1, c.bits), nil
}

func (c floatConverter) parse(s string, dst reflect.Value) error {
	if !isDecimalText(s) {
		return conversionErr(c.typ, nil, "invalid number %q", s)
	}
	f, err := strconv.ParseFloat(s, c.bits)
	if err != nil {
		return conversionErr(c.typ, err, "number %q out of range", s)
	}
	dst.SetFloat(f)
	return nil
}

func (c floatConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	return readTextCodec(c, c.typ, av, dst)
}

func (c floatConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return writeTextCodec(c, src)
}

func (c floatConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	return readTextCodecJSON(c, c.typ, r, dst)
}

func (c floatConverter) WriteJSON(w *Writer, src reflect.Value) error {
	return writeTextCodecJSON(c, w, src)
}

// enumConverter maps named integer types as their underlying number. Values read
// from the wire are not checked against the declared constants.
type enumConverter struct {
	textConverter
}

// numberConverter maps [Number] to N without conversion.
type numberConverter struct {
	typ reflect.Type
}

func newNumberConverter(_ *Store, t reflect.Type) (Converter, error) {
	return numberConverter{typ: t}, nil
}

func (c numberConverter) dataType() DataType { return DataTypeNumber }

func (c numberConverter) format(src reflect.Value) (string, error) {
	s := src.String()
	if !isCanonicalNumber(s) {
		return "", conversionErr(c.typ, nil, "invalid number %q", s)
	}
	return s, nil
}

func (c numberConverter) parse(s string, dst reflect.Value) error {
	if !isDecimalText(s) {
		return conversionErr(c.typ, nil, "invalid number %q", s)
	}
	dst.SetString(s)
	return nil
}

func (c numberConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	return readTextCodec(c, c.typ, av, dst)
}

func (c numberConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return writeTextCodec(c, src)
}

func (c numberConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	return readTextCodecJSON(c, c.typ, r, dst)
}

func (c numberConverter) WriteJSON(w *Writer, src reflect.Value) error {
	return writeTextCodecJSON(c, w, src)
}
