package dynacodec

import (
	"fmt"
	"io"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Marshal converts v to an attribute value using the converter of its dynamic type.
// Structs become M attributes and a nil v becomes NULL.
func (s *Store) Marshal(v any) (types.AttributeValue, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return Null, nil
	}
	conv, err := s.converter(rv.Type(), "")
	if err != nil {
		return nil, err
	}
	return conv.Write(rv)
}

// MarshalItem converts v, a struct or pointer to struct, to a top-level item.
func (s *Store) MarshalItem(v any) (Item, error) {
	sv, d, err := s.itemSource(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return writeItem(d, sv)
}

// Unmarshal decodes av into the value pointed to by out. out is only modified if
// decoding succeeds.
func (s *Store) Unmarshal(av types.AttributeValue, out any) error {
	target, err := decodeTarget(out)
	if err != nil {
		return err
	}
	conv, err := s.converter(target.Type(), "")
	if err != nil {
		return err
	}
	fresh := reflect.New(target.Type()).Elem()
	if err := conv.Read(av, fresh); err != nil {
		return err
	}
	target.Set(fresh)
	return nil
}

// UnmarshalItem decodes item into the struct pointed to by out. Attributes without
// a mapped member are ignored.
func (s *Store) UnmarshalItem(item Item, out any) error {
	target, err := decodeTarget(out)
	if err != nil {
		return err
	}
	fresh := reflect.New(target.Type()).Elem()
	if err := s.readItemInto(item, fresh); err != nil {
		return err
	}
	target.Set(fresh)
	return nil
}

// Schema returns the descriptor of t.
func (s *Store) Schema(t reflect.Type) (*ClassDescriptor, error) {
	return s.Describe(t)
}

// WriteItem writes v, a struct or pointer to struct, as a bare wire map.
func (s *Store) WriteItem(w *Writer, v any) error {
	sv, d, err := s.itemSource(reflect.ValueOf(v))
	if err != nil {
		return err
	}
	return writeFields(w, d, sv)
}

// WriteValue writes v as a single wire value.
func (s *Store) WriteValue(w *Writer, v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		w.Null()
		return w.Err()
	}
	conv, err := s.converter(rv.Type(), "")
	if err != nil {
		return err
	}
	if err := conv.WriteJSON(w, rv); err != nil {
		return err
	}
	return w.Err()
}

// ReadItem reads a bare wire map into the struct pointed to by out.
func (s *Store) ReadItem(r *Reader, out any) error {
	target, err := decodeTarget(out)
	if err != nil {
		return err
	}
	fresh := reflect.New(target.Type()).Elem()
	if err := s.readFieldsInto(r, fresh); err != nil {
		return err
	}
	target.Set(fresh)
	return nil
}

// ReadValue reads a single wire value into the value pointed to by out.
func (s *Store) ReadValue(r *Reader, out any) error {
	target, err := decodeTarget(out)
	if err != nil {
		return err
	}
	conv, err := s.converter(target.Type(), "")
	if err != nil {
		return err
	}
	fresh := reflect.New(target.Type()).Elem()
	if err := conv.ReadJSON(r, fresh); err != nil {
		return err
	}
	target.Set(fresh)
	return nil
}

// itemSource dereferences v down to a struct value and its object descriptor.
func (s *Store) itemSource(v reflect.Value) (reflect.Value, *ClassDescriptor, error) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, nil, fmt.Errorf("cannot marshal nil %s as an item", v.Type())
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return reflect.Value{}, nil, fmt.Errorf("cannot marshal nil as an item")
	}
	d, err := s.objectDescriptor(v.Type())
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return v, d, nil
}

func (s *Store) objectDescriptor(t reflect.Type) (*ClassDescriptor, error) {
	d, err := s.Describe(t)
	if err != nil {
		return nil, err
	}
	if d.category != CategoryObject {
		return nil, configErr(t, "%s category does not map to an item", d.category)
	}
	return d, nil
}

// readItemInto decodes item into dst, a settable struct, pointer or interface
// value of an object type.
func (s *Store) readItemInto(item Item, dst reflect.Value) error {
	return s.intoObject(dst, func(d *ClassDescriptor, sv reflect.Value) error {
		return readItem(d, item, sv)
	})
}

func (s *Store) readFieldsInto(r *Reader, dst reflect.Value) error {
	return s.intoObject(dst, func(d *ClassDescriptor, sv reflect.Value) error {
		return readFields(r, d, sv)
	})
}

func (s *Store) intoObject(dst reflect.Value, fill func(*ClassDescriptor, reflect.Value) error) error {
	t := dst.Type()
	if t.Kind() == reflect.Pointer {
		p := reflect.New(t.Elem())
		if err := s.intoObject(p.Elem(), fill); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	d, err := s.objectDescriptor(t)
	if err != nil {
		return err
	}
	inst := d.New()
	if err := fill(d, inst.Elem()); err != nil {
		return err
	}
	if t.Kind() == reflect.Interface {
		dst.Set(inst)
	} else {
		dst.Set(inst.Elem())
	}
	return nil
}

func decodeTarget(out any) (reflect.Value, error) {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: got %T", ErrInvalidTarget, out)
	}
	return rv.Elem(), nil
}

// Marshal converts v to an attribute value with the default store.
func Marshal(v any) (types.AttributeValue, error) { return defaultStore.Marshal(v) }

// MarshalItem converts v to an item with the default store.
func MarshalItem(v any) (Item, error) { return defaultStore.MarshalItem(v) }

// Unmarshal decodes av into out with the default store.
func Unmarshal(av types.AttributeValue, out any) error { return defaultStore.Unmarshal(av, out) }

// UnmarshalItem decodes item into out with the default store.
func UnmarshalItem(item Item, out any) error { return defaultStore.UnmarshalItem(item, out) }

// WriteItem writes v as a bare wire map with the default store.
func WriteItem(w *Writer, v any) error { return defaultStore.WriteItem(w, v) }

// WriteValue writes v as a wire value with the default store.
func WriteValue(w *Writer, v any) error { return defaultStore.WriteValue(w, v) }

// ReadItem reads a bare wire map into out with the default store.
func ReadItem(r *Reader, out any) error { return defaultStore.ReadItem(r, out) }

// ReadValue reads a wire value into out with the default store.
func ReadValue(r *Reader, out any) error { return defaultStore.ReadValue(r, out) }

// Schema returns the descriptor of t from the default store.
func Schema(t reflect.Type) (*ClassDescriptor, error) { return defaultStore.Describe(t) }

// SchemaOf returns the descriptor of T from the default store.
func SchemaOf[T any]() (*ClassDescriptor, error) {
	return defaultStore.Describe(reflect.TypeFor[T]())
}

// UnmarshalList decodes each item in items and appends the result to out. Nothing
// is appended if any item fails to decode.
func UnmarshalList[T any](items []Item, out *[]T) error {
	values := make([]T, 0, len(items))
	for i, item := range items {
		var value T
		if err := UnmarshalItem(item, &value); err != nil {
			return fmt.Errorf("failed to unmarshal item %d: %w", i, err)
		}
		values = append(values, value)
	}
	*out = append(*out, values...)
	return nil
}

// Encoder writes items to an output stream, one bare wire map per call.
type Encoder struct {
	store *Store
	w     *Writer
}

// NewEncoder returns an encoder writing to out with the default store.
func NewEncoder(out io.Writer) *Encoder {
	return defaultStore.NewEncoder(out)
}

// NewEncoder returns an encoder writing to out.
func (s *Store) NewEncoder(out io.Writer) *Encoder {
	return &Encoder{store: s, w: NewWriter(out)}
}

// Encode writes v as an item followed by a newline and flushes the stream.
func (e *Encoder) Encode(v any) error {
	if err := e.store.WriteItem(e.w, v); err != nil {
		return err
	}
	e.w.stream.WriteRaw("\n")
	return e.w.Flush()
}

// Decoder reads successive items from an input stream.
type Decoder struct {
	store *Store
	r     *Reader
}

// NewDecoder returns a decoder reading from in with the default store.
func NewDecoder(in io.Reader) *Decoder {
	return defaultStore.NewDecoder(in)
}

// NewDecoder returns a decoder reading from in.
func (s *Store) NewDecoder(in io.Reader) *Decoder {
	return &Decoder{store: s, r: NewReader(in)}
}

// Decode reads the next item into out. It returns io.EOF once the input is
// exhausted.
func (d *Decoder) Decode(out any) error {
	if !d.r.more() {
		return io.EOF
	}
	return d.store.ReadItem(d.r, out)
}
