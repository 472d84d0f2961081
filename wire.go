package dynacodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	jsoniter "github.com/json-iterator/go"
)

var wireConfig = jsoniter.Config{EscapeHTML: false}.Froze()

// ErrMalformedWire is returned when the token stream is not a well formed wire document.
var ErrMalformedWire = errors.New("malformed wire document")

// Writer emits wire-format JSON tokens into a buffered stream. Converters write
// directly into it so that large responses never need an intermediate tree.
type Writer struct {
	stream *jsoniter.Stream
}

// NewWriter returns a Writer that flushes to out; out may be nil, in which case the
// encoded bytes are only available through [Writer.Bytes].
func NewWriter(out io.Writer) *Writer {
	return &Writer{stream: jsoniter.NewStream(wireConfig, out, 512)}
}

// Flush writes buffered tokens to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.stream.Flush(); err != nil {
		return err
	}
	return w.stream.Error
}

// Bytes returns the buffered, unflushed output.
func (w *Writer) Bytes() []byte { return w.stream.Buffer() }

// Err returns the first error recorded by the stream.
func (w *Writer) Err() error { return w.stream.Error }

// ObjectStart writes '{'.
func (w *Writer) ObjectStart() { w.stream.WriteObjectStart() }

// ObjectEnd writes '}'.
func (w *Writer) ObjectEnd() { w.stream.WriteObjectEnd() }

// ArrayStart writes '['.
func (w *Writer) ArrayStart() { w.stream.WriteArrayStart() }

// ArrayEnd writes ']'.
func (w *Writer) ArrayEnd() { w.stream.WriteArrayEnd() }

// More writes the separator between array elements or object fields.
func (w *Writer) More() { w.stream.WriteMore() }

// Name writes an object field name and its colon.
func (w *Writer) Name(name string) { w.stream.WriteObjectField(validUTF8(name)) }

// StringToken writes s as a string token. Invalid UTF-8 is replaced with U+FFFD.
func (w *Writer) StringToken(s string) { w.stream.WriteString(validUTF8(s)) }

// validUTF8 replaces invalid byte sequences the way encoding/json does.
func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "\uFFFD")
}

// BinaryToken writes b as a base64 string token.
func (w *Writer) BinaryToken(b []byte) {
	buf := append(w.stream.Buffer(), '"')
	buf = base64.StdEncoding.AppendEncode(buf, b)
	w.stream.SetBuffer(append(buf, '"'))
}

// Begin opens a wire value of type dt; the payload follows and [Writer.End] closes it.
func (w *Writer) Begin(dt DataType) {
	w.stream.WriteObjectStart()
	w.Name(string(dt))
}

// End closes a wire value opened with [Writer.Begin].
func (w *Writer) End() { w.stream.WriteObjectEnd() }

// Text writes a complete S or N wire value.
func (w *Writer) Text(dt DataType, s string) {
	w.Begin(dt)
	w.StringToken(s)
	w.End()
}

// Binary writes a complete B wire value.
func (w *Writer) Binary(b []byte) {
	w.Begin(DataTypeBinary)
	w.BinaryToken(b)
	w.End()
}

// Bool writes a complete BOOL wire value.
func (w *Writer) Bool(b bool) {
	w.Begin(DataTypeBoolean)
	w.stream.WriteBool(b)
	w.End()
}

// Null writes the NULL wire value.
func (w *Writer) Null() {
	w.Begin(DataTypeNull)
	w.stream.WriteTrue()
	w.End()
}

// WriteAttributeValue writes av in wire form. Map keys are written in sorted order so
// the output is deterministic.
func (w *Writer) WriteAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		w.Text(DataTypeString, v.Value)
	case *types.AttributeValueMemberN:
		w.Text(DataTypeNumber, v.Value)
	case *types.AttributeValueMemberB:
		w.Binary(v.Value)
	case *types.AttributeValueMemberBOOL:
		w.Bool(v.Value)
	case *types.AttributeValueMemberNULL:
		w.Null()
	case *types.AttributeValueMemberSS:
		w.textSet(DataTypeStringSet, v.Value)
	case *types.AttributeValueMemberNS:
		w.textSet(DataTypeNumberSet, v.Value)
	case *types.AttributeValueMemberBS:
		w.Begin(DataTypeBinarySet)
		w.ArrayStart()
		for i, b := range v.Value {
			if i > 0 {
				w.More()
			}
			w.BinaryToken(b)
		}
		w.ArrayEnd()
		w.End()
	case *types.AttributeValueMemberM:
		w.Begin(DataTypeMap)
		if err := w.WriteAttributes(v.Value); err != nil {
			return err
		}
		w.End()
	case *types.AttributeValueMemberL:
		w.Begin(DataTypeList)
		w.ArrayStart()
		for i, elem := range v.Value {
			if i > 0 {
				w.More()
			}
			if err := w.WriteAttributeValue(elem); err != nil {
				return fmt.Errorf("list index %d: %w", i, err)
			}
		}
		w.ArrayEnd()
		w.End()
	default:
		return fmt.Errorf("%w: unsupported attribute value %T", ErrMalformedWire, av)
	}
	return w.stream.Error
}

// WriteAttributes writes item as a bare map of wire name to wire value.
func (w *Writer) WriteAttributes(item Item) error {
	names := make([]string, 0, len(item))
	for name := range item {
		names = append(names, name)
	}
	slices.Sort(names)

	w.ObjectStart()
	for i, name := range names {
		if i > 0 {
			w.More()
		}
		w.Name(name)
		if err := w.WriteAttributeValue(item[name]); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
	}
	w.ObjectEnd()
	return w.stream.Error
}

func (w *Writer) textSet(dt DataType, values []string) {
	w.Begin(dt)
	w.ArrayStart()
	for i, s := range values {
		if i > 0 {
			w.More()
		}
		w.StringToken(s)
	}
	w.ArrayEnd()
	w.End()
}

// Reader pulls wire-format JSON tokens from a streaming source.
type Reader struct {
	iter *jsoniter.Iterator
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	return &Reader{iter: jsoniter.Parse(wireConfig, r, 4096)}
}

// NewBytesReader returns a Reader consuming data.
func NewBytesReader(data []byte) *Reader {
	return &Reader{iter: jsoniter.ParseBytes(wireConfig, data)}
}

// Err returns the first token error. Input ending inside a value is reported as
// malformed.
func (r *Reader) Err() error {
	switch {
	case r.iter.Error == nil:
		return nil
	case errors.Is(r.iter.Error, io.EOF):
		return fmt.Errorf("%w: unexpected end of input", ErrMalformedWire)
	}
	return fmt.Errorf("%w: %v", ErrMalformedWire, r.iter.Error)
}

// more reports whether any input other than whitespace remains.
func (r *Reader) more() bool {
	r.iter.WhatIsNext()
	return !errors.Is(r.iter.Error, io.EOF)
}

// Begin opens the next wire value and returns its type tag.
func (r *Reader) Begin() (DataType, error) {
	if next := r.iter.WhatIsNext(); next != jsoniter.ObjectValue {
		if err := r.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: expected attribute value object", ErrMalformedWire)
	}
	dt := DataType(r.iter.ReadObject())
	if err := r.Err(); err != nil {
		return "", err
	}
	if !dt.valid() {
		return "", fmt.Errorf("%w: unknown attribute type %q", ErrMalformedWire, dt)
	}
	return dt, nil
}

// End closes the wire value opened by [Reader.Begin].
func (r *Reader) End() error {
	if extra := r.iter.ReadObject(); extra != "" {
		return fmt.Errorf("%w: attribute value has more than one type (%q)", ErrMalformedWire, extra)
	}
	return r.Err()
}

// Field advances to the next member of a JSON object, returning false once the
// object ends. The first call consumes the opening brace.
func (r *Reader) Field() (string, bool, error) {
	name := r.iter.ReadObject()
	if err := r.Err(); err != nil {
		return "", false, err
	}
	return name, name != "", nil
}

// Next advances to the next element of a JSON array, returning false once the array
// ends. The first call consumes the opening bracket.
func (r *Reader) Next() (bool, error) {
	more := r.iter.ReadArray()
	return more, r.Err()
}

// StringToken reads a string token.
func (r *Reader) StringToken() (string, error) {
	s := r.iter.ReadString()
	return s, r.Err()
}

// BinaryToken reads a base64 string token.
func (r *Reader) BinaryToken() ([]byte, error) {
	s := r.iter.ReadString()
	if err := r.Err(); err != nil {
		return nil, err
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return b, nil
}

// BoolToken reads a boolean token.
func (r *Reader) BoolToken() (bool, error) {
	b := r.iter.ReadBool()
	return b, r.Err()
}

// IntToken reads a bare JSON number token, as used by response envelopes.
func (r *Reader) IntToken() (int64, error) {
	n := r.iter.ReadInt64()
	return n, r.Err()
}

// IsNull consumes a JSON null token if one is next.
func (r *Reader) IsNull() bool {
	return r.iter.ReadNil()
}

// Skip discards the next JSON value.
func (r *Reader) Skip() error {
	r.iter.Skip()
	return r.Err()
}

// ReadAttributeValue reads one complete wire value.
func (r *Reader) ReadAttributeValue() (types.AttributeValue, error) {
	dt, err := r.Begin()
	if err != nil {
		return nil, err
	}

	var av types.AttributeValue
	switch dt {
	case DataTypeString:
		s, err := r.StringToken()
		if err != nil {
			return nil, err
		}
		av = &types.AttributeValueMemberS{Value: s}
	case DataTypeNumber:
		s, err := r.StringToken()
		if err != nil {
			return nil, err
		}
		av = &types.AttributeValueMemberN{Value: s}
	case DataTypeBinary:
		b, err := r.BinaryToken()
		if err != nil {
			return nil, err
		}
		av = &types.AttributeValueMemberB{Value: b}
	case DataTypeBoolean:
		b, err := r.BoolToken()
		if err != nil {
			return nil, err
		}
		av = &types.AttributeValueMemberBOOL{Value: b}
	case DataTypeNull:
		b, err := r.BoolToken()
		if err != nil {
			return nil, err
		}
		av = &types.AttributeValueMemberNULL{Value: b}
	case DataTypeStringSet, DataTypeNumberSet:
		var values []string
		for {
			more, err := r.Next()
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
			s, err := r.StringToken()
			if err != nil {
				return nil, err
			}
			values = append(values, s)
		}
		if dt == DataTypeStringSet {
			av = &types.AttributeValueMemberSS{Value: values}
		} else {
			av = &types.AttributeValueMemberNS{Value: values}
		}
	case DataTypeBinarySet:
		var values [][]byte
		for {
			more, err := r.Next()
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
			b, err := r.BinaryToken()
			if err != nil {
				return nil, err
			}
			values = append(values, b)
		}
		av = &types.AttributeValueMemberBS{Value: values}
	case DataTypeMap:
		m, err := r.ReadAttributes()
		if err != nil {
			return nil, err
		}
		av = &types.AttributeValueMemberM{Value: m}
	case DataTypeList:
		values := []types.AttributeValue{}
		for i := 0; ; i++ {
			more, err := r.Next()
			if err != nil {
				return nil, err
			}
			if !more {
				break
			}
			elem, err := r.ReadAttributeValue()
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			values = append(values, elem)
		}
		av = &types.AttributeValueMemberL{Value: values}
	}

	if err := r.End(); err != nil {
		return nil, err
	}
	return av, nil
}

// ReadAttributes reads a bare map of wire name to wire value.
func (r *Reader) ReadAttributes() (Item, error) {
	item := Item{}
	for {
		name, ok, err := r.Field()
		if err != nil {
			return nil, err
		}
		if !ok {
			return item, nil
		}
		av, err := r.ReadAttributeValue()
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		item[name] = av
	}
}

// EncodeJSON returns the wire JSON encoding of av.
func EncodeJSON(av types.AttributeValue) ([]byte, error) {
	w := NewWriter(nil)
	if err := w.WriteAttributeValue(av); err != nil {
		return nil, err
	}
	return slices.Clone(w.Bytes()), nil
}

// DecodeJSON parses one wire value from data.
func DecodeJSON(data []byte) (types.AttributeValue, error) {
	return NewBytesReader(data).ReadAttributeValue()
}

// EncodeItemJSON returns the wire JSON encoding of item as a bare map.
func EncodeItemJSON(item Item) ([]byte, error) {
	w := NewWriter(nil)
	if err := w.WriteAttributes(item); err != nil {
		return nil, err
	}
	return slices.Clone(w.Bytes()), nil
}

// DecodeItemJSON parses a bare map of wire values from data.
func DecodeItemJSON(data []byte) (Item, error) {
	return NewBytesReader(data).ReadAttributes()
}
