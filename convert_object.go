package dynacodec

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// objectConverter maps structs, and interfaces with a registered constructor, to
// M. The schema is resolved on first use.
type objectConverter struct {
	store *Store
	typ   reflect.Type
	desc  atomic.Pointer[ClassDescriptor]
}

func (c *objectConverter) descriptor() (*ClassDescriptor, error) {
	if d := c.desc.Load(); d != nil {
		return d, nil
	}
	d, err := c.store.Describe(c.typ)
	if err != nil {
		return nil, err
	}
	c.desc.Store(d)
	return d, nil
}

// instance returns the struct value behind src, or ok=false for nil interfaces.
// Interface values holding another dynamic type are reported through other.
func (c *objectConverter) instance(d *ClassDescriptor, src reflect.Value) (sv reflect.Value, other bool, ok bool) {
	if c.typ.Kind() != reflect.Interface {
		return src, false, true
	}
	if src.IsNil() {
		return reflect.Value{}, false, false
	}
	dyn := src.Elem()
	if dyn.Type() != reflect.PointerTo(d.concrete) {
		return dyn, true, true
	}
	if dyn.IsNil() {
		return reflect.Value{}, false, false
	}
	return dyn.Elem(), false, true
}

// assign stores the instance built by d.New() into dst.
func (c *objectConverter) assign(inst, dst reflect.Value) {
	if c.typ.Kind() == reflect.Interface {
		dst.Set(inst)
		return
	}
	dst.Set(inst.Elem())
}

func (c *objectConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	d, err := c.descriptor()
	if err != nil {
		return nil, err
	}
	sv, other, ok := c.instance(d, src)
	if !ok {
		return Null, nil
	}
	if other {
		conv, err := c.store.converter(sv.Type(), "")
		if err != nil {
			return nil, err
		}
		return conv.Write(sv)
	}
	item, err := writeItem(d, sv)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberM{Value: item}, nil
}

func (c *objectConverter) WriteJSON(w *Writer, src reflect.Value) error {
	d, err := c.descriptor()
	if err != nil {
		return err
	}
	sv, other, ok := c.instance(d, src)
	if !ok {
		w.Null()
		return nil
	}
	if other {
		conv, err := c.store.converter(sv.Type(), "")
		if err != nil {
			return err
		}
		return conv.WriteJSON(w, sv)
	}
	w.Begin(DataTypeMap)
	if err := writeFields(w, d, sv); err != nil {
		return err
	}
	w.End()
	return nil
}

func (c *objectConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	if isNull(av) {
		dst.SetZero()
		return nil
	}
	m, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return mismatch(c.typ, DataTypeMap, TypeOf(av))
	}
	d, err := c.descriptor()
	if err != nil {
		return err
	}
	inst := d.New()
	if err := readItem(d, m.Value, inst.Elem()); err != nil {
		return err
	}
	c.assign(inst, dst)
	return nil
}

func (c *objectConverter) ReadJSON(r *Reader, dst reflect.Value) error {
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
	d, err := c.descriptor()
	if err != nil {
		return err
	}
	inst := d.New()
	if err := readFields(r, d, inst.Elem()); err != nil {
		return err
	}
	if err := r.End(); err != nil {
		return err
	}
	c.assign(inst, dst)
	return nil
}

// writeItem converts the mapped members of sv to an item.
func writeItem(d *ClassDescriptor, sv reflect.Value) (Item, error) {
	item := make(Item, len(d.properties))
	for _, p := range d.properties {
		fv := p.Get(sv)
		if p.omitEmpty && fv.IsZero() {
			continue
		}
		av, err := p.converter.Write(fv)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", p.name, err)
		}
		item[p.name] = av
	}
	return item, nil
}

// readItem assigns the attributes of item to the mapped members of sv. Attributes
// without a member are ignored.
func readItem(d *ClassDescriptor, item Item, sv reflect.Value) error {
	for name, av := range item {
		p, ok := d.byName[name]
		if !ok {
			continue
		}
		if err := p.converter.Read(av, p.Get(sv)); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
	}
	return nil
}

// writeFields writes the mapped members of sv as a bare object, in definition order.
func writeFields(w *Writer, d *ClassDescriptor, sv reflect.Value) error {
	w.ObjectStart()
	first := true
	for _, p := range d.properties {
		fv := p.Get(sv)
		if p.omitEmpty && fv.IsZero() {
			continue
		}
		if !first {
			w.More()
		}
		first = false
		w.Name(p.name)
		if err := p.converter.WriteJSON(w, fv); err != nil {
			return fmt.Errorf("attribute %q: %w", p.name, err)
		}
	}
	w.ObjectEnd()
	return w.Err()
}

// readFields reads a bare object into the mapped members of sv, skipping unknown
// attributes.
func readFields(r *Reader, d *ClassDescriptor, sv reflect.Value) error {
	for {
		name, ok, err := r.Field()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		p, known := d.byName[name]
		if !known {
			if err := r.Skip(); err != nil {
				return err
			}
			continue
		}
		if err := p.converter.ReadJSON(r, p.Get(sv)); err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
	}
}

// pointerConverter maps *T as T. A nil pointer is written as NULL and NULL
// reads as nil.
type pointerConverter struct {
	typ  reflect.Type
	elem *converterRef
}

func (c *pointerConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	if isNull(av) {
		dst.SetZero()
		return nil
	}
	elem, err := c.elem.get()
	if err != nil {
		return err
	}
	p := reflect.New(c.typ.Elem())
	if err := elem.Read(av, p.Elem()); err != nil {
		return err
	}
	dst.Set(p)
	return nil
}

func (c *pointerConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	if src.IsNil() {
		return Null, nil
	}
	elem, err := c.elem.get()
	if err != nil {
		return nil, err
	}
	return elem.Write(src.Elem())
}

func (c *pointerConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	av, err := r.ReadAttributeValue()
	if err != nil {
		return err
	}
	return c.Read(av, dst)
}

func (c *pointerConverter) WriteJSON(w *Writer, src reflect.Value) error {
	if src.IsNil() {
		w.Null()
		return nil
	}
	elem, err := c.elem.get()
	if err != nil {
		return err
	}
	return elem.WriteJSON(w, src.Elem())
}

// interfaceConverter maps interface values by their dynamic type. Only the empty
// interface can be read; wire values decode into their natural Go form.
type interfaceConverter struct {
	store *Store
	typ   reflect.Type
}

func (c *interfaceConverter) dynamic(src reflect.Value) (Converter, reflect.Value, error) {
	dyn := src.Elem()
	conv, err := c.store.converter(dyn.Type(), "")
	return conv, dyn, err
}

func (c *interfaceConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	if src.IsNil() {
		return Null, nil
	}
	conv, dyn, err := c.dynamic(src)
	if err != nil {
		return nil, err
	}
	return conv.Write(dyn)
}

func (c *interfaceConverter) WriteJSON(w *Writer, src reflect.Value) error {
	if src.IsNil() {
		w.Null()
		return nil
	}
	conv, dyn, err := c.dynamic(src)
	if err != nil {
		return err
	}
	return conv.WriteJSON(w, dyn)
}

func (c *interfaceConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	if isNull(av) {
		dst.SetZero()
		return nil
	}
	if c.typ.NumMethod() > 0 {
		return constructErr(c.typ, "interface type has no registered constructor")
	}
	var v any
	if err := attributevalue.Unmarshal(av, &v); err != nil {
		return conversionErr(c.typ, err, "decode %s attribute", TypeOf(av))
	}
	if v == nil {
		dst.SetZero()
		return nil
	}
	dst.Set(reflect.ValueOf(v))
	return nil
}

func (c *interfaceConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	av, err := r.ReadAttributeValue()
	if err != nil {
		return err
	}
	return c.Read(av, dst)
}

// hookConverter defers to attributevalue.Marshaler and attributevalue.Unmarshaler
// implementations. A direction the type does not implement falls back to base.
type hookConverter struct {
	typ  reflect.Type
	base Converter
}

func (c *hookConverter) marshaler(src reflect.Value) (attributevalue.Marshaler, bool) {
	if m, ok := src.Interface().(attributevalue.Marshaler); ok {
		return m, true
	}
	p := reflect.New(c.typ)
	p.Elem().Set(src)
	m, ok := p.Interface().(attributevalue.Marshaler)
	return m, ok
}

func (c *hookConverter) Write(src reflect.Value) (types.AttributeValue, error) {
	m, ok := c.marshaler(src)
	if !ok {
		if c.base == nil {
			return nil, configErr(c.typ, "type cannot be marshaled")
		}
		return c.base.Write(src)
	}
	av, err := m.MarshalDynamoDBAttributeValue()
	if err != nil {
		return nil, conversionErr(c.typ, err, "marshal attribute value")
	}
	if av == nil {
		return Null, nil
	}
	return av, nil
}

func (c *hookConverter) Read(av types.AttributeValue, dst reflect.Value) error {
	p := reflect.New(c.typ)
	u, ok := p.Interface().(attributevalue.Unmarshaler)
	if !ok {
		if c.base == nil {
			return configErr(c.typ, "type cannot be unmarshaled")
		}
		return c.base.Read(av, dst)
	}
	if err := u.UnmarshalDynamoDBAttributeValue(av); err != nil {
		return conversionErr(c.typ, err, "unmarshal %s attribute", TypeOf(av))
	}
	dst.Set(p.Elem())
	return nil
}

func (c *hookConverter) WriteJSON(w *Writer, src reflect.Value) error {
	av, err := c.Write(src)
	if err != nil {
		return err
	}
	return w.WriteAttributeValue(av)
}

func (c *hookConverter) ReadJSON(r *Reader, dst reflect.Value) error {
	av, err := r.ReadAttributeValue()
	if err != nil {
		return err
	}
	return c.Read(av, dst)
}
