// Package assert provides fluent assertion utilities for testing DynamoDB items
// and mapped types. It makes tests more readable by providing expressive assertion
// methods over the wire model.
//
// # Usage
//
//	import "github.com/nisimpson/dynacodec/dynamock/assert"
//
//	// Assert on DynamoDB items
//	assert.Items(t, result.Items).
//		HasCount(3).
//		ContainsKey(dynacodec.Item{"pk": &types.AttributeValueMemberS{Value: "order#1"}})
//
//	// Assert on a single item
//	assert.Item(t, input.Item).
//		HasString("pk", "order#1").
//		HasNumber("total", "12.5").
//		Lacks("notes")
//
//	// Assert on mapped values
//	assert.Value(t, &order).
//		MarshalsTo(`{"pk":{"S":"order#1"},"sk":{"S":"order"}}`).
//		RoundTrips()
package assert

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nisimpson/dynacodec"
)

// ItemsAssertion provides fluent assertions for DynamoDB items.
type ItemsAssertion struct {
	t     testing.TB
	items []dynacodec.Item
}

// Items creates a new ItemsAssertion for the given DynamoDB items.
func Items(t testing.TB, items []dynacodec.Item) *ItemsAssertion {
	return &ItemsAssertion{t: t, items: items}
}

// HasCount asserts that the items collection has the expected count.
func (a *ItemsAssertion) HasCount(expected int) *ItemsAssertion {
	a.t.Helper()
	if len(a.items) != expected {
		a.t.Errorf("expected %d items, got %d", expected, len(a.items))
	}
	return a
}

// IsEmpty asserts that the items collection is empty.
func (a *ItemsAssertion) IsEmpty() *ItemsAssertion {
	a.t.Helper()
	return a.HasCount(0)
}

// IsNotEmpty asserts that the items collection is not empty.
func (a *ItemsAssertion) IsNotEmpty() *ItemsAssertion {
	a.t.Helper()
	if len(a.items) == 0 {
		a.t.Error("expected items to not be empty")
	}
	return a
}

// ContainsKey asserts that some item holds every attribute of key.
func (a *ItemsAssertion) ContainsKey(key dynacodec.Item) *ItemsAssertion {
	a.t.Helper()
	for _, item := range a.items {
		if hasAll(item, key) {
			return a
		}
	}
	a.t.Errorf("expected to find item with key %s", encode(key))
	return a
}

// AllHave asserts that every item holds the named attribute.
func (a *ItemsAssertion) AllHave(name string) *ItemsAssertion {
	a.t.Helper()
	for i, item := range a.items {
		if _, ok := item[name]; !ok {
			a.t.Errorf("item %d missing attribute %s", i, name)
		}
	}
	return a
}

// At returns assertions on the item at index i.
func (a *ItemsAssertion) At(i int) *ItemAssertion {
	a.t.Helper()
	if i < 0 || i >= len(a.items) {
		a.t.Fatalf("item index %d out of range (%d items)", i, len(a.items))
	}
	return Item(a.t, a.items[i])
}

func hasAll(item, key dynacodec.Item) bool {
	for name, want := range key {
		got, ok := item[name]
		if !ok || !equal(got, want) {
			return false
		}
	}
	return true
}

// ItemAssertion provides fluent assertions for a single DynamoDB item.
type ItemAssertion struct {
	t    testing.TB
	item dynacodec.Item
}

// Item creates a new ItemAssertion for item.
func Item(t testing.TB, item dynacodec.Item) *ItemAssertion {
	return &ItemAssertion{t: t, item: item}
}

// HasAttribute asserts that the item holds the named attribute.
func (a *ItemAssertion) HasAttribute(name string) *ItemAssertion {
	a.t.Helper()
	if _, ok := a.item[name]; !ok {
		a.t.Errorf("item missing attribute %s", name)
	}
	return a
}

// Lacks asserts that the item does not hold the named attribute.
func (a *ItemAssertion) Lacks(name string) *ItemAssertion {
	a.t.Helper()
	if av, ok := a.item[name]; ok {
		a.t.Errorf("expected no attribute %s, got %s", name, encodeValue(av))
	}
	return a
}

// HasType asserts the wire type of the named attribute.
func (a *ItemAssertion) HasType(name string, dt dynacodec.DataType) *ItemAssertion {
	a.t.Helper()
	av, ok := a.item[name]
	if !ok {
		a.t.Errorf("item missing attribute %s", name)
		return a
	}
	if got := dynacodec.TypeOf(av); got != dt {
		a.t.Errorf("attribute %s expected type %s, got %s", name, dt, got)
	}
	return a
}

// HasString asserts that the named attribute is the string expected.
func (a *ItemAssertion) HasString(name, expected string) *ItemAssertion {
	a.t.Helper()
	return a.HasValue(name, &types.AttributeValueMemberS{Value: expected})
}

// HasNumber asserts that the named attribute is a number with the expected text.
func (a *ItemAssertion) HasNumber(name, expected string) *ItemAssertion {
	a.t.Helper()
	return a.HasValue(name, &types.AttributeValueMemberN{Value: expected})
}

// HasBool asserts that the named attribute is the boolean expected.
func (a *ItemAssertion) HasBool(name string, expected bool) *ItemAssertion {
	a.t.Helper()
	return a.HasValue(name, &types.AttributeValueMemberBOOL{Value: expected})
}

// IsNull asserts that the named attribute is NULL.
func (a *ItemAssertion) IsNull(name string) *ItemAssertion {
	a.t.Helper()
	return a.HasType(name, dynacodec.DataTypeNull)
}

// HasValue asserts that the named attribute equals expected.
func (a *ItemAssertion) HasValue(name string, expected types.AttributeValue) *ItemAssertion {
	a.t.Helper()
	av, ok := a.item[name]
	if !ok {
		a.t.Errorf("item missing attribute %s", name)
		return a
	}
	if !equal(av, expected) {
		a.t.Errorf("attribute %s expected %s, got %s", name, encodeValue(expected), encodeValue(av))
	}
	return a
}

// EqualsJSON asserts that the item, in wire JSON form, equals expected.
func (a *ItemAssertion) EqualsJSON(expected string) *ItemAssertion {
	a.t.Helper()
	want, err := dynacodec.DecodeItemJSON([]byte(expected))
	if err != nil {
		a.t.Errorf("invalid expected item: %v", err)
		return a
	}
	if got := encode(a.item); got != encode(want) {
		a.t.Errorf("expected item %s, got %s", encode(want), got)
	}
	return a
}

// ValueAssertion provides fluent assertions for values of mapped types.
type ValueAssertion struct {
	t     testing.TB
	store *dynacodec.Store
	v     any
}

// Value creates a new ValueAssertion for v using the default store.
func Value(t testing.TB, v any) *ValueAssertion {
	return &ValueAssertion{t: t, store: dynacodec.DefaultStore(), v: v}
}

// WithStore returns a copy of the assertion that resolves schemas in s.
func (a *ValueAssertion) WithStore(s *dynacodec.Store) *ValueAssertion {
	return &ValueAssertion{t: a.t, store: s, v: a.v}
}

// CanMarshal asserts that the value converts to an item.
func (a *ValueAssertion) CanMarshal() *ValueAssertion {
	a.t.Helper()
	if _, err := a.store.MarshalItem(a.v); err != nil {
		a.t.Errorf("value failed to marshal: %v", err)
	}
	return a
}

// MarshalsTo asserts that the value streams to exactly the expected wire JSON.
func (a *ValueAssertion) MarshalsTo(expected string) *ValueAssertion {
	a.t.Helper()
	w := dynacodec.NewWriter(nil)
	if err := a.store.WriteItem(w, a.v); err != nil {
		a.t.Errorf("value failed to write: %v", err)
		return a
	}
	if got := w.Bytes(); !bytes.Equal(got, []byte(expected)) {
		a.t.Errorf("expected JSON %s, got %s", expected, got)
	}
	return a
}

// RoundTrips asserts that converting the value to an item and back, and writing it
// to JSON and reading it back, both yield an equal value.
func (a *ValueAssertion) RoundTrips() *ValueAssertion {
	a.t.Helper()
	rv := reflect.ValueOf(a.v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	item, err := a.store.MarshalItem(a.v)
	if err != nil {
		a.t.Errorf("value failed to marshal: %v", err)
		return a
	}
	out := reflect.New(rv.Type())
	if err := a.store.UnmarshalItem(item, out.Interface()); err != nil {
		a.t.Errorf("value failed to unmarshal: %v", err)
		return a
	}
	if !reflect.DeepEqual(rv.Interface(), out.Elem().Interface()) {
		a.t.Errorf("item round trip mismatch: expected %+v, got %+v", rv.Interface(), out.Elem().Interface())
	}

	w := dynacodec.NewWriter(nil)
	if err := a.store.WriteItem(w, a.v); err != nil {
		a.t.Errorf("value failed to write: %v", err)
		return a
	}
	out = reflect.New(rv.Type())
	if err := a.store.ReadItem(dynacodec.NewBytesReader(w.Bytes()), out.Interface()); err != nil {
		a.t.Errorf("value failed to read: %v", err)
		return a
	}
	if !reflect.DeepEqual(rv.Interface(), out.Elem().Interface()) {
		a.t.Errorf("JSON round trip mismatch: expected %+v, got %+v", rv.Interface(), out.Elem().Interface())
	}
	return a
}

// Item returns assertions on the item the value converts to.
func (a *ValueAssertion) Item() *ItemAssertion {
	a.t.Helper()
	item, err := a.store.MarshalItem(a.v)
	if err != nil {
		a.t.Fatalf("value failed to marshal: %v", err)
	}
	return Item(a.t, item)
}

func equal(a, b types.AttributeValue) bool {
	return encodeValue(a) == encodeValue(b)
}

func encodeValue(av types.AttributeValue) string {
	data, err := dynacodec.EncodeJSON(av)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(data)
}

func encode(item dynacodec.Item) string {
	data, err := dynacodec.EncodeItemJSON(item)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(data)
}
