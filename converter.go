package dynacodec

import (
	"reflect"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Converter translates between Go values of one declared type and wire values,
// either through the AttributeValue tree or directly through the token stream.
//
// Read and ReadJSON receive a settable dst of the declared type. Write and
// WriteJSON receive a src of the declared type, which may not be addressable.
type Converter interface {
	Read(av types.AttributeValue, dst reflect.Value) error
	Write(src reflect.Value) (types.AttributeValue, error)
	ReadJSON(r *Reader, dst reflect.Value) error
	WriteJSON(w *Writer, src reflect.Value) error
}

// ConverterFactory builds a converter for members declared with type t.
type ConverterFactory func(s *Store, t reflect.Type) (Converter, error)

// elementer is implemented by converters of Enumerable and Dictionary types.
type elementer interface {
	element() (Category, reflect.Type)
}

// textCodec is implemented by converters whose values have a single text form,
// which sets and dictionary keys are built from.
type textCodec interface {
	dataType() DataType
	format(src reflect.Value) (string, error)
	parse(s string, dst reflect.Value) error
}

var (
	marshalerType   = reflect.TypeFor[attributevalue.Marshaler]()
	unmarshalerType = reflect.TypeFor[attributevalue.Unmarshaler]()
	byteType        = reflect.TypeFor[byte]()
)

func (s *Store) newConverter(t reflect.Type, name string) (Converter, error) {
	if name != "" {
		f, ok := s.namedFactory(name)
		if !ok {
			return nil, configErr(t, "unknown converter %q", name)
		}
		return f(s, t)
	}
	if f, ok := s.exactFactory(t); ok {
		return f(s, t)
	}

	pt := reflect.PointerTo(t)
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface &&
		(t.Implements(marshalerType) || pt.Implements(marshalerType) || pt.Implements(unmarshalerType)) {
		base, _ := s.kindConverter(t)
		return &hookConverter{typ: t, base: base}, nil
	}
	return s.kindConverter(t)
}

// kindConverter selects a converter from the kind of t alone.
func (s *Store) kindConverter(t reflect.Type) (Converter, error) {
	switch t.Kind() {
	case reflect.Bool:
		return boolConverter{typ: t}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		c := intConverter{typ: t, bits: t.Bits()}
		if t.PkgPath() != "" {
			return enumConverter{textConverter: c}, nil
		}
		return c, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		c := uintConverter{typ: t, bits: t.Bits()}
		if t.PkgPath() != "" {
			return enumConverter{textConverter: c}, nil
		}
		return c, nil
	case reflect.Float32, reflect.Float64:
		return floatConverter{typ: t, bits: t.Bits()}, nil
	case reflect.String:
		return stringConverter{typ: t}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return bytesConverter{typ: t}, nil
		}
		return &listConverter{typ: t, elem: s.ref(t.Elem())}, nil
	case reflect.Array:
		if t.Elem() == byteType {
			return byteArrayConverter{typ: t}, nil
		}
		return &arrayConverter{typ: t, elem: s.ref(t.Elem())}, nil
	case reflect.Map:
		if t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0 {
			return s.newMapSetConverter(t)
		}
		return s.newDictConverter(t)
	case reflect.Struct:
		return &objectConverter{store: s, typ: t}, nil
	case reflect.Pointer:
		return &pointerConverter{typ: t, elem: s.ref(t.Elem())}, nil
	case reflect.Interface:
		if cfg := s.typeConfig(t); cfg.New != nil {
			return &objectConverter{store: s, typ: t}, nil
		}
		return &interfaceConverter{store: s, typ: t}, nil
	}
	return nil, configErr(t, "unsupported kind %s", t.Kind())
}

// converterRef resolves a child converter on first use. Composite converters hold
// refs so that building a converter never recurses into its children, which lets
// self-referential types resolve.
type converterRef struct {
	store *Store
	typ   reflect.Type
	conv  atomic.Pointer[Converter]
}

func (s *Store) ref(t reflect.Type) *converterRef {
	return &converterRef{store: s, typ: t}
}

func (r *converterRef) get() (Converter, error) {
	if c := r.conv.Load(); c != nil {
		return *c, nil
	}
	c, err := r.store.converter(r.typ, "")
	if err != nil {
		return nil, err
	}
	r.conv.Store(&c)
	return c, nil
}

func isNull(av types.AttributeValue) bool {
	_, ok := av.(*types.AttributeValueMemberNULL)
	return ok
}

// beginValue opens the next wire value. A NULL value is consumed completely and
// reported with null set.
func beginValue(r *Reader) (dt DataType, null bool, err error) {
	dt, err = r.Begin()
	if err != nil {
		return "", false, err
	}
	if dt != DataTypeNull {
		return dt, false, nil
	}
	if _, err := r.BoolToken(); err != nil {
		return "", false, err
	}
	if err := r.End(); err != nil {
		return "", false, err
	}
	return dt, true, nil
}

// readText reads a complete S or N value of type want. null reports a NULL value.
func readText(r *Reader, t reflect.Type, want DataType) (text string, null bool, err error) {
	dt, null, err := beginValue(r)
	if err != nil || null {
		return "", null, err
	}
	if dt != want {
		return "", false, mismatch(t, want, dt)
	}
	if text, err = r.StringToken(); err != nil {
		return "", false, err
	}
	return text, false, r.End()
}

func textValue(dt DataType, s string) types.AttributeValue {
	if dt == DataTypeNumber {
		return &types.AttributeValueMemberN{Value: s}
	}
	return &types.AttributeValueMemberS{Value: s}
}

func textOf(av types.AttributeValue, t reflect.Type, want DataType) (string, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		if want == DataTypeString {
			return v.Value, nil
		}
	case *types.AttributeValueMemberN:
		if want == DataTypeNumber {
			return v.Value, nil
		}
	}
	return "", mismatch(t, want, TypeOf(av))
}

// textConverter is a scalar Converter with a single text form.
type textConverter interface {
	Converter
	textCodec
}

func readTextCodec(c textCodec, t reflect.Type, av types.AttributeValue, dst reflect.Value) error {
	if isNull(av) {
		dst.SetZero()
		return nil
	}
	s, err := textOf(av, t, c.dataType())
	if err != nil {
		return err
	}
	return c.parse(s, dst)
}

func writeTextCodec(c textCodec, src reflect.Value) (types.AttributeValue, error) {
	s, err := c.format(src)
	if err != nil {
		return nil, err
	}
	return textValue(c.dataType(), s), nil
}

func readTextCodecJSON(c textCodec, t reflect.Type, r *Reader, dst reflect.Value) error {
	s, null, err := readText(r, t, c.dataType())
	if err != nil {
		return err
	}
	if null {
		dst.SetZero()
		return nil
	}
	return c.parse(s, dst)
}

func writeTextCodecJSON(c textCodec, w *Writer, src reflect.Value) error {
	s, err := c.format(src)
	if err != nil {
		return err
	}
	w.Text(c.dataType(), s)
	return nil
}
