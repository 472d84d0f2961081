package dynacodec

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// listConverter maps slices to L. A nil slice is written as NULL.
type listConverter struct {
	typ  reflect.Type
	elem *converterRef
}

func (c *listConverter) element() (Category, reflect.Type) { return CategoryEnumerable, c.typ.Elem() }

func (c *listConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	if isNull(av) {
		dst.SetZero()
		return nil
	}
	l, ok := av.(*types.AttributeValueMemberL)
	if !ok {
		return mismatch(c.typ, DataTypeList, TypeOf(av))
	}
	elem, err := c.elem.get()
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(c.typ, len(l.Value), len(l.Value))
	for i, v := range l.Value {
		if err := elem.Read(v, out.Index(i)); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	dst.Set(out)
	return nil
}

func (c *listConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	if src.IsNil() {
		return Null, nil
	}
	return writeList(c.elem, src)
}

func (c *listConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	dt, null, err := beginValue(r)
	if err != nil {
		return err
	}
	if null {
		dst.SetZero()
		return nil
	}
	if dt != DataTypeList {
		return mismatch(c.typ, DataTypeList, dt)
	}
	elem, err := c.elem.get()
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(c.typ, 0, 4)
	for i := 0; ; i++ {
		more, err := r.Next()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		out = reflect.Append(out, reflect.Zero(c.typ.Elem()))
		if err := elem.ReadJSON(r, out.Index(i)); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	if err := r.End(); err != nil {
		return err
	}
	dst.Set(out)
	return nil
}

func (c *listConverter) WriteJSON(w *Writer, src reflect.Value) error {
	if src.IsNil() {
		w.Null()
		return nil
	}
	return writeListJSON(c.elem, w, src)
}

// arrayConverter maps fixed size arrays to L. Elements missing from the wire value
// are left zero.
type arrayConverter struct {
	typ  reflect.Type
	elem *converterRef
}

func (c *arrayConverter) element() (Category, reflect.Type) { return CategoryEnumerable, c.typ.Elem() }

func (c *arrayConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	if isNull(av) {
		dst.SetZero()
		return nil
	}
	l, ok := av.(*types.AttributeValueMemberL)
	if !ok {
		return mismatch(c.typ, DataTypeList, TypeOf(av))
	}
	if len(l.Value) > c.typ.Len() {
		return conversionErr(c.typ, nil, "list has %d elements, array holds %d", len(l.Value), c.typ.Len())
	}
	elem, err := c.elem.get()
	if err != nil {
		return err
	}
	out := reflect.New(c.typ).Elem()
	for i, v := range l.Value {
		if err := elem.Read(v, out.Index(i)); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	dst.Set(out)
	return nil
}

func (c *arrayConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	return writeList(c.elem, src)
}

func (c *arrayConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	dt, null, err := beginValue(r)
	if err != nil {
		return err
	}
	if null {
		dst.SetZero()
		return nil
	}
	if dt != DataTypeList {
		return mismatch(c.typ, DataTypeList, dt)
	}
	elem, err := c.elem.get()
	if err != nil {
		return err
	}
	out := reflect.New(c.typ).Elem()
	for i := 0; ; i++ {
		more, err := r.Next()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if i >= c.typ.Len() {
			return conversionErr(c.typ, nil, "list has more than %d elements", c.typ.Len())
		}
		if err := elem.ReadJSON(r, out.Index(i)); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	if err := r.End(); err != nil {
		return err
	}
	dst.Set(out)
	return nil
}

func (c *arrayConverter) WriteJSON(w *Writer, src reflect.Value) error {
	return writeListJSON(c.elem, w, src)
}

func writeList(ref *converterRef, src reflect.Value) (types.AttributeValue, error) {
	elem, err := ref.get()
	if err != nil {
		return nil, err
	}
	out := make([]types.AttributeValue, src.Len())
	for i := range out {
		if out[i], err = elem.Write(src.Index(i)); err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
	}
	return &types.AttributeValueMemberL{Value: out}, nil
}

func writeListJSON(ref *converterRef, w *Writer, src reflect.Value) error {
	elem, err := ref.get()
	if err != nil {
		return err
	}
	w.Begin(DataTypeList)
	w.ArrayStart()
	for i := 0; i < src.Len(); i++ {
		if i > 0 {
			w.More()
		}
		if err := elem.WriteJSON(w, src.Index(i)); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	w.ArrayEnd()
	w.End()
	return nil
}

// setConverter maps map[K]struct{} and, with the "set" converter, slices of
// strings, numbers or byte slices to SS, NS or BS. Sets cannot be empty on the
// wire, so nil and empty sets are written as NULL.
type setConverter struct {
	typ   reflect.Type
	dt    DataType
	codec textCodec // nil for binary sets
	isMap bool
}

func (s *Store) newMapSetConverter(t reflect.Type) (Converter, error) {
	codec, dt, err := setCodec(t, t.Key())
	if err != nil {
		return nil, err
	}
	if codec == nil {
		return nil, configErr(t, "binary sets must be declared as slices")
	}
	return &setConverter{typ: t, dt: dt, codec: codec, isMap: true}, nil
}

func newSliceSetConverter(s *Store, t reflect.Type) (Converter, error) {
	switch t.Kind() {
	case reflect.Map:
		if t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0 {
			return s.newMapSetConverter(t)
		}
	case reflect.Slice:
		codec, dt, err := setCodec(t, t.Elem())
		if err != nil {
			return nil, err
		}
		return &setConverter{typ: t, dt: dt, codec: codec}, nil
	}
	return nil, configErr(t, "set converter requires a slice or map[K]struct{}")
}

// setCodec selects the element codec of a set with element type et.
func setCodec(t, et reflect.Type) (textCodec, DataType, error) {
	switch et.Kind() {
	case reflect.String:
		return stringConverter{typ: et}, DataTypeStringSet, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intConverter{typ: et, bits: et.Bits()}, DataTypeNumberSet, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintConverter{typ: et, bits: et.Bits()}, DataTypeNumberSet, nil
	case reflect.Float32, reflect.Float64:
		return floatConverter{typ: et, bits: et.Bits()}, DataTypeNumberSet, nil
	case reflect.Slice:
		if et.Elem().Kind() == reflect.Uint8 {
			return nil, DataTypeBinarySet, nil
		}
	}
	return nil, "", configErr(t, "set elements must be strings, numbers or byte slices, not %s", et)
}

func (c *setConverter) element() (Category, reflect.Type) {
	if c.isMap {
		return CategoryEnumerable, c.typ.Key()
	}
	return CategoryEnumerable, c.typ.Elem()
}

// texts returns the wire text of the members of src. Map sets are sorted for
// deterministic output; slice sets keep their order and must not repeat.
func (c *setConverter) texts(src reflect.Value) ([]string, error) {
	var elems []reflect.Value
	if c.isMap {
		elems = src.MapKeys()
		slices.SortFunc(elems, compareKeys)
	} else {
		elems = make([]reflect.Value, src.Len())
		for i := range elems {
			elems[i] = src.Index(i)
		}
	}

	out := make([]string, len(elems))
	seen := make(map[string]struct{}, len(elems))
	for i, e := range elems {
		var s string
		if c.codec == nil {
			s = string(e.Bytes())
		} else {
			var err error
			if s, err = c.codec.format(e); err != nil {
				return nil, err
			}
		}
		if _, dup := seen[s]; dup {
			return nil, conversionErr(c.typ, nil, "duplicate set member %q", s)
		}
		seen[s] = struct{}{}
		out[i] = s
	}
	return out, nil
}

func (c *setConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	if src.IsNil() || src.Len() == 0 {
		return Null, nil
	}
	texts, err := c.texts(src)
	if err != nil {
		return nil, err
	}
	switch c.dt {
	case DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: texts}, nil
	case DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: texts}, nil
	}
	values := make([][]byte, len(texts))
	for i, s := range texts {
		values[i] = []byte(s)
	}
	return &types.AttributeValueMemberBS{Value: values}, nil
}

func (c *setConverter) WriteJSON(w *Writer, src reflect.Value) error {
	if src.IsNil() || src.Len() == 0 {
		w.Null()
		return nil
	}
	texts, err := c.texts(src)
	if err != nil {
		return err
	}
	w.Begin(c.dt)
	w.ArrayStart()
	for i, s := range texts {
		if i > 0 {
			w.More()
		}
		if c.dt == DataTypeBinarySet {
			w.BinaryToken([]byte(s))
		} else {
			w.StringToken(s)
		}
	}
	w.ArrayEnd()
	w.End()
	return nil
}

func (c *setConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	if isNull(av) {
		dst.SetZero()
		return nil
	}
	switch v := av.(type) {
	case *types.AttributeValueMemberSS:
		if c.dt == DataTypeStringSet {
			return c.fill(v.Value, nil, dst)
		}
	case *types.AttributeValueMemberNS:
		if c.dt == DataTypeNumberSet {
			return c.fill(v.Value, nil, dst)
		}
	case *types.AttributeValueMemberBS:
		if c.dt == DataTypeBinarySet {
			return c.fill(nil, v.Value, dst)
		}
	}
	return mismatch(c.typ, c.dt, TypeOf(av))
}

func (c *setConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	dt, null, err := beginValue(r)
	if err != nil {
		return err
	}
	if null {
		dst.SetZero()
		return nil
	}
	if dt != c.dt {
		return mismatch(c.typ, c.dt, dt)
	}

	var texts []string
	var blobs [][]byte
	for {
		more, err := r.Next()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		if c.dt == DataTypeBinarySet {
			b, err := r.BinaryToken()
			if err != nil {
				return conversionErr(c.typ, err, "invalid binary set member")
			}
			blobs = append(blobs, b)
			continue
		}
		s, err := r.StringToken()
		if err != nil {
			return err
		}
		texts = append(texts, s)
	}
	if err := r.End(); err != nil {
		return err
	}
	return c.fill(texts, blobs, dst)
}

// fill assigns the decoded members to dst. Exactly one of texts and blobs is used.
func (c *setConverter) fill(texts []string, blobs [][]byte, dst reflect.Value) error {
	n := len(texts) + len(blobs)
	if c.isMap {
		out := reflect.MakeMapWithSize(c.typ, n)
		unit := reflect.Zero(c.typ.Elem())
		for _, s := range texts {
			k := reflect.New(c.typ.Key()).Elem()
			if err := c.codec.parse(s, k); err != nil {
				return err
			}
			out.SetMapIndex(k, unit)
		}
		dst.Set(out)
		return nil
	}

	out := reflect.MakeSlice(c.typ, n, n)
	for i, s := range texts {
		if err := c.codec.parse(s, out.Index(i)); err != nil {
			return err
		}
	}
	for i, b := range blobs {
		out.Index(i).SetBytes(b)
	}
	dst.Set(out)
	return nil
}

// dictConverter maps maps with string or integer keys to M.
type dictConverter struct {
	typ  reflect.Type
	key  textCodec
	elem *converterRef
}

func (s *Store) newDictConverter(t reflect.Type) (Converter, error) {
	kt := t.Key()
	var key textCodec
	switch kt.Kind() {
	case reflect.String:
		key = stringConverter{typ: kt}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		key = intConverter{typ: kt, bits: kt.Bits()}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		key = uintConverter{typ: kt, bits: kt.Bits()}
	default:
		return nil, configErr(t, "map keys must be strings or integers, not %s", kt)
	}
	return &dictConverter{typ: t, key: key, elem: s.ref(t.Elem())}, nil
}

func (c *dictConverter) element() (Category, reflect.Type) { return CategoryDictionary, c.typ.Elem() }

func (c *dictConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	if src.IsNil() {
		return Null, nil
	}
	elem, err := c.elem.get()
	if err != nil {
		return nil, err
	}
	out := make(Item, src.Len())
	iter := src.MapRange()
	for iter.Next() {
		name, err := c.key.format(iter.Key())
		if err != nil {
			return nil, err
		}
		if out[name], err = elem.Write(iter.Value()); err != nil {
			return nil, fmt.Errorf("key %q: %w", name, err)
		}
	}
	return &types.AttributeValueMemberM{Value: out}, nil
}

func (c *dictConverter) WriteJSON(w *Writer, src reflect.Value) error {
	if src.IsNil() {
		w.Null()
		return nil
	}
	elem, err := c.elem.get()
	if err != nil {
		return err
	}
	keys := src.MapKeys()
	slices.SortFunc(keys, compareKeys)

	w.Begin(DataTypeMap)
	w.ObjectStart()
	for i, k := range keys {
		name, err := c.key.format(k)
		if err != nil {
			return err
		}
		if i > 0 {
			w.More()
		}
		w.Name(name)
		if err := elem.WriteJSON(w, src.MapIndex(k)); err != nil {
			return fmt.Errorf("key %q: %w", name, err)
		}
	}
	w.ObjectEnd()
	w.End()
	return nil
}

func (c *dictConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	if isNull(av) {
		dst.SetZero()
		return nil
	}
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return mismatch(c.typ, DataTypeMap, TypeOf(av))
	}
	elem, err := c.elem.get()
	if err != nil {
		return err
	}
	out := reflect.MakeMapWithSize(c.typ, len(m.Value))
	for name, v := range m.Value {
		k := reflect.New(c.typ.Key()).Elem()
		if err := c.key.parse(name, k); err != nil {
			return err
		}
		val := reflect.New(c.typ.Elem()).Elem()
		if err := elem.Read(v, val); err != nil {
			return fmt.Errorf("key %q: %w", name, err)
		}
		out.SetMapIndex(k, val)
	}
	dst.Set(out)
	return nil
}

func (c *dictConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	dt, null, err := beginValue(r)
	if err != nil {
		return err
	}
	if null {
		dst.SetZero()
		return nil
	}
	if dt != DataTypeMap {
		return mismatch(c.typ, DataTypeMap, dt)
	}
	elem, err := c.elem.get()
	if err != nil {
		return err
	}
	out := reflect.MakeMap(c.typ)
	for {
		name, ok, err := r.Field()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		k := reflect.New(c.typ.Key()).Elem()
		if err := c.key.parse(name, k); err != nil {
			return err
		}
		val := reflect.New(c.typ.Elem()).Elem()
		if err := elem.ReadJSON(r, val); err != nil {
			return fmt.Errorf("key %q: %w", name, err)
		}
		out.SetMapIndex(k, val)
	}
	if err := r.End(); err != nil {
		return err
	}
	dst.Set(out)
	return nil
}

// compareKeys orders map keys of the same type: numbers numerically, everything
// else by string value.
func compareKeys(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	}
	return cmp.Compare(a.String(), b.String())
}
