package dynacodec

import (
	"bytes"
	"encoding"
	"reflect"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

type boolConverter struct {
	typ reflect.Type
}

func (c boolConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberNULL:
		dst.SetZero()
	case *types.AttributeValueMemberBOOL:
		dst.SetBool(v.Value)
	default:
		return mismatch(c.typ, DataTypeBoolean, TypeOf(av))
	}
	return nil
}

func (c boolConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return &types.AttributeValueMemberBOOL{Value: src.Bool()}, nil
}

func (c boolConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	dt, null, err := beginValue(r)
	if err != nil {
		return err
	}
	if null {
		dst.SetZero()
		return nil
	}
	if dt != DataTypeBoolean {
		return mismatch(c.typ, DataTypeBoolean, dt)
	}
	b, err := r.BoolToken()
	if err != nil {
		return err
	}
	dst.SetBool(b)
	return r.End()
}

func (c boolConverter) WriteJSON(w *Writer, src reflect.Value) error {
	w.Bool(src.Bool())
	return nil
}

type stringConverter struct {
	typ reflect.Type
}

func (c stringConverter) dataType() DataType { return DataTypeString }

func (c stringConverter) format(src reflect.Value) (string, error) { return src.String(), nil }

func (c stringConverter) parse(s string, dst reflect.Value) error {
	dst.SetString(s)
	return nil
}

func (c stringConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	return readTextCodec(c, c.typ, av, dst)
}

func (c stringConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return writeTextCodec(c, src)
}

func (c stringConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	return readTextCodecJSON(c, c.typ, r, dst)
}

func (c stringConverter) WriteJSON(w *Writer, src reflect.Value) error {
	return writeTextCodecJSON(c, w, src)
}

// bytesConverter maps byte slices to B. A nil slice is written as NULL.
type bytesConverter struct {
	typ reflect.Type
}

func (c bytesConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberNULL:
		dst.SetZero()
	case *types.AttributeValueMemberB:
		dst.SetBytes(bytes.Clone(v.Value))
	default:
		return mismatch(c.typ, DataTypeBinary, TypeOf(av))
	}
	return nil
}

func (c bytesConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	if src.IsNil() {
		return Null, nil
	}
	return &types.AttributeValueMemberB{Value: bytes.Clone(src.Bytes())}, nil
}

func (c bytesConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	dt, null, err := beginValue(r)
	if err != nil {
		return err
	}
	if null {
		dst.SetZero()
		return nil
	}
	if dt != DataTypeBinary {
		return mismatch(c.typ, DataTypeBinary, dt)
	}
	b, err := r.BinaryToken()
	if err != nil {
		return conversionErr(c.typ, err, "invalid binary payload")
	}
	dst.SetBytes(b)
	return r.End()
}

func (c bytesConverter) WriteJSON(w *Writer, src reflect.Value) error {
	if src.IsNil() {
		w.Null()
		return nil
	}
	w.Binary(src.Bytes())
	return nil
}

// byteArrayConverter maps fixed size byte arrays to B. The wire payload must
// have exactly the array length.
type byteArrayConverter struct {
	typ reflect.Type
}

func (c byteArrayConverter) bytesOf(src reflect.Value) []byte {
	b := make([]byte, src.Len())
	reflect.Copy(reflect.ValueOf(b), src)
	return b
}

func (c byteArrayConverter) set(b []byte, dst reflect.Value) error {
	if len(b) != c.typ.Len() {
		return conversionErr(c.typ, nil, "binary payload has %d bytes, want %d", len(b), c.typ.Len())
	}
	reflect.Copy(dst, reflect.ValueOf(b))
	return nil
}

func (c byteArrayConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberNULL:
		dst.SetZero()
		return nil
	case *types.AttributeValueMemberB:
		return c.set(v.Value, dst)
	}
	return mismatch(c.typ, DataTypeBinary, TypeOf(av))
}

func (c byteArrayConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return &types.AttributeValueMemberB{Value: c.bytesOf(src)}, nil
}

func (c byteArrayConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	dt, null, err := beginValue(r)
	if err != nil {
		return err
	}
	if null {
		dst.SetZero()
		return nil
	}
	if dt != DataTypeBinary {
		return mismatch(c.typ, DataTypeBinary, dt)
	}
	b, err := r.BinaryToken()
	if err != nil {
		return conversionErr(c.typ, err, "invalid binary payload")
	}
	if err := c.set(b, dst); err != nil {
		return err
	}
	return r.End()
}

func (c byteArrayConverter) WriteJSON(w *Writer, src reflect.Value) error {
	w.Binary(c.bytesOf(src))
	return nil
}

// timeConverter maps time.Time to S in RFC 3339 format with nanoseconds.
type timeConverter struct {
	typ reflect.Type
}

func newTimeConverter(_ *Store, t reflect.Type) (Converter, error) {
	return timeConverter{typ: t}, nil
}

func (c timeConverter) dataType() DataType { return DataTypeString }

func (c timeConverter) format(src reflect.Value) (string, error) {
	return src.Interface().(time.Time).Format(time.RFC3339Nano), nil
}

func (c timeConverter) parse(s string, dst reflect.Value) error {
	tm, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return conversionErr(c.typ, err, "invalid timestamp %q", s)
	}
	dst.Set(reflect.ValueOf(tm))
	return nil
}

func (c timeConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	return readTextCodec(c, c.typ, av, dst)
}

func (c timeConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return writeTextCodec(c, src)
}

func (c timeConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	return readTextCodecJSON(c, c.typ, r, dst)
}

func (c timeConverter) WriteJSON(w *Writer, src reflect.Value) error {
	return writeTextCodecJSON(c, w, src)
}

// unixTimeConverter maps time.Time to N holding whole seconds since the epoch,
// the format expected by table TTL attributes.
type unixTimeConverter struct {
	typ reflect.Type
}

func newUnixTimeConverter(_ *Store, t reflect.Type) (Converter, error) {
	if t != reflect.TypeOf(time.Time{}) {
		return nil, configErr(t, "unixtime converter requires time.Time")
	}
	return unixTimeConverter{typ: t}, nil
}

func (c unixTimeConverter) dataType() DataType { return DataTypeNumber }

func (c unixTimeConverter) format(src reflect.Value) (string, error) {
	return strconv.FormatInt(src.Interface().(time.Time).Unix(), 10), nil
}

func (c unixTimeConverter) parse(s string, dst reflect.Value) error {
	if !isIntegerText(s) {
		return conversionErr(c.typ, nil, "invalid epoch seconds %q", s)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return conversionErr(c.typ, err, "epoch seconds %q out of range", s)
	}
	dst.Set(reflect.ValueOf(time.Unix(n, 0).UTC()))
	return nil
}

func (c unixTimeConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	return readTextCodec(c, c.typ, av, dst)
}

func (c unixTimeConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return writeTextCodec(c, src)
}

func (c unixTimeConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	return readTextCodecJSON(c, c.typ, r, dst)
}

func (c unixTimeConverter) WriteJSON(w *Writer, src reflect.Value) error {
	return writeTextCodecJSON(c, w, src)
}

// uuidConverter maps uuid.UUID to S in canonical hyphenated form.
type uuidConverter struct {
	typ reflect.Type
}

func newUUIDConverter(_ *Store, t reflect.Type) (Converter, error) {
	return uuidConverter{typ: t}, nil
}

func (c uuidConverter) dataType() DataType { return DataTypeString }

func (c uuidConverter) format(src reflect.Value) (string, error) {
	return src.Interface().(uuid.UUID).String(), nil
}

func (c uuidConverter) parse(s string, dst reflect.Value) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return conversionErr(c.typ, err, "invalid uuid %q", s)
	}
	dst.Set(reflect.ValueOf(id))
	return nil
}

func (c uuidConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	return readTextCodec(c, c.typ, av, dst)
}

func (c uuidConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return writeTextCodec(c, src)
}

func (c uuidConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	return readTextCodecJSON(c, c.typ, r, dst)
}

func (c uuidConverter) WriteJSON(w *Writer, src reflect.Value) error {
	return writeTextCodecJSON(c, w, src)
}

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// textMarshalConverter maps types implementing encoding.TextMarshaler and
// encoding.TextUnmarshaler to S.
type textMarshalConverter struct {
	typ reflect.Type
}

func newTextConverter(_ *Store, t reflect.Type) (Converter, error) {
	pt := reflect.PointerTo(t)
	if !(t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)) || !pt.Implements(textUnmarshalerType) {
		return nil, configErr(t, "text converter requires encoding.TextMarshaler and encoding.TextUnmarshaler")
	}
	return textMarshalConverter{typ: t}, nil
}

func (c textMarshalConverter) dataType() DataType { return DataTypeString }

func (c textMarshalConverter) format(src reflect.Value) (string, error) {
	m, ok := src.Interface().(encoding.TextMarshaler)
	if !ok {
		p := reflect.New(c.typ)
		p.Elem().Set(src)
		m = p.Interface().(encoding.TextMarshaler)
	}
	b, err := m.MarshalText()
	if err != nil {
		return "", conversionErr(c.typ, err, "marshal text")
	}
	return string(b), nil
}

func (c textMarshalConverter) parse(s string, dst reflect.Value) error {
	p := reflect.New(c.typ)
	if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
		return conversionErr(c.typ, err, "unmarshal text %q", s)
	}
	dst.Set(p.Elem())
	return nil
}

func (c textMarshalConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	return readTextCodec(c, c.typ, av, dst)
}

func (c textMarshalConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return writeTextCodec(c, src)
}

func (c textMarshalConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	return readTextCodecJSON(c, c.typ, r, dst)
}

func (c textMarshalConverter) WriteJSON(w *Writer, src reflect.Value) error {
	return writeTextCodecJSON(c, w, src)
}
