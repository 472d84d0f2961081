package dynacodec

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Shape interface {
	Area() float64
}

type square struct {
	Side float64 `ddb:"side"`
}

func (s *square) Area() float64 { return s.Side * s.Side }

type Drawing struct {
	Title string `ddb:"title"`
	Shape Shape  `ddb:"shape"`
}

type Auditable interface {
	AuditID() string
}

type Document struct {
	Title   string
	Owner   string
	Created string
}

func (d Document) AuditID() string { return d.Title }

type SignedDocument struct {
	Document
	Created string `ddb:"created_at"`
}

type autoLine struct {
	AutoMap
	Name string
	Sku  string
}

type autoOrder struct {
	AutoMap
	ID     string `ddb:"pk,pk"`
	Kind   string `ddb:"sk,sk"`
	Status OrderStatus
	Items  []autoLine
}

type keyed struct {
	ID string `ddb:"id"`
}

type renamedKey struct {
	keyed
	Other string `ddb:"id"`
	X     string `ddb:"x"`
}

type Invoice struct {
	_     TableName `ddb:"invoices"`
	ID    string    `ddb:"id,pk"`
	Total float64   `ddb:"total"`
}

func (i *Invoice) AuditID() string { return i.ID }

type plainUser struct {
	ID   string
	Name string
	Nick string `ddb:"nick"`
}

func propertyNames(d *ClassDescriptor) []string {
	var names []string
	for _, p := range d.Properties() {
		names = append(names, p.Name())
	}
	return names
}

func TestDescribeTags(t *testing.T) {
	d, err := NewStore().Describe(reflect.TypeFor[testOrder]())
	require.NoError(t, err)

	assert.Equal(t, CategoryObject, d.Category())
	assert.Equal(t, "orders", d.TableName())
	assert.Equal(t, []string{"pk", "sk", "Status", "Items"}, propertyNames(d))
	assert.Equal(t, "pk", d.PartitionKey().Name())
	assert.Equal(t, RolePartitionKey, d.PartitionKey().Role())
	assert.Equal(t, "sk", d.SortKey().Name())
	assert.Nil(t, d.Version())

	p, ok := d.Member("Kind")
	require.True(t, ok)
	assert.Equal(t, "sk", p.Name())
	assert.Equal(t, reflect.TypeFor[string](), p.Type())

	_, ok = d.Property("Kind")
	assert.False(t, ok)

	inst := d.New()
	require.Equal(t, reflect.Pointer, inst.Kind())
	assert.Equal(t, reflect.TypeFor[testOrder](), inst.Elem().Type())
}

func TestDescribeAutoMap(t *testing.T) {
	d, err := NewStore().Describe(reflect.TypeFor[Profile]())
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "email_address"}, propertyNames(d))
	assert.Empty(t, d.TableName())
}

func TestDescribeTagOptions(t *testing.T) {
	type options struct {
		Count   int      `ddb:",omitempty"`
		Rev     int64    `ddb:"rev,version"`
		Tags    []string `ddb:"tags,set"`
		Skipped string   `ddb:"-"`
		Untyped string
	}
	d, err := NewStore().Describe(reflect.TypeFor[options]())
	require.NoError(t, err)
	assert.Equal(t, []string{"Count", "rev", "tags"}, propertyNames(d))

	count, _ := d.Property("Count")
	assert.True(t, count.OmitEmpty())
	rev, _ := d.Property("rev")
	assert.True(t, rev.IsVersion())
	assert.Same(t, rev, d.Version())
	tags, _ := d.Property("tags")
	assert.IsType(t, &setConverter{}, tags.Converter())
}

func TestDescribeInvalidTag(t *testing.T) {
	type badTag struct {
		A string `ddb:"a,primary"`
	}
	_, err := NewStore().Describe(reflect.TypeFor[badTag]())
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, `unknown tag option "primary"`)
}

func TestDescribeTypeConfig(t *testing.T) {
	s := NewStore()
	RegisterType[plainUser](s, TypeConfig{
		TableName: "users",
		AutoMap:   true,
		Fields: map[string]FieldConfig{
			"ID":   {Name: "id", Role: RolePartitionKey},
			"Nick": {Ignore: true},
		},
	})

	d, err := s.Describe(reflect.TypeFor[plainUser]())
	require.NoError(t, err)
	assert.Equal(t, "users", d.TableName())
	assert.Equal(t, []string{"id", "Name"}, propertyNames(d))
	assert.Equal(t, "id", d.PartitionKey().Name())
}

func TestDescribeFieldConfigOverridesTag(t *testing.T) {
	s := NewStore()
	RegisterType[Customer](s, TypeConfig{
		Fields: map[string]FieldConfig{"Name": {Name: "full_name", OmitEmpty: true}},
	})

	d, err := s.Describe(reflect.TypeFor[Customer]())
	require.NoError(t, err)
	p, ok := d.Member("Name")
	require.True(t, ok)
	assert.Equal(t, "full_name", p.Name())
	assert.True(t, p.OmitEmpty())
}

func TestDescribeAncestors(t *testing.T) {
	d, err := NewStore().Describe(reflect.TypeFor[Customer]())
	require.NoError(t, err)

	assert.Equal(t, []string{"pk", "version", "label", "name"}, propertyNames(d))
	assert.Equal(t, "pk", d.PartitionKey().Name())
	assert.Equal(t, "version", d.Version().Name())

	label, ok := d.Property("label")
	require.True(t, ok)
	assert.Equal(t, "Label", label.Member())

	c := Customer{Entity: Entity{ID: "c1", Label: "base"}, Label: "derived", Name: "Ada"}
	assert.Equal(t, "base", label.Get(reflect.ValueOf(c)).String())

	item, err := NewStore().MarshalItem(&c)
	require.NoError(t, err)
	out, err := EncodeItemJSON(item)
	require.NoError(t, err)
	assert.Equal(t, `{"label":{"S":"base"},"name":{"S":"Ada"},"pk":{"S":"c1"},"version":{"N":"0"}}`, string(out))
}

func TestDescribeTaggedEmbedIsMember(t *testing.T) {
	type wrapper struct {
		Entity `ddb:"entity"`
		Name   string `ddb:"name"`
	}
	d, err := NewStore().Describe(reflect.TypeFor[wrapper]())
	require.NoError(t, err)
	assert.Equal(t, []string{"entity", "name"}, propertyNames(d))
	assert.Nil(t, d.PartitionKey())
}

func TestDescribeDuplicateKeys(t *testing.T) {
	_, err := NewStore().Describe(reflect.TypeFor[dupKeys]())
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "multiple partition key attributes")
}

func TestDescribeInterfaceConfig(t *testing.T) {
	s := NewStore()
	s.RegisterInterface(reflect.TypeFor[Auditable](), InterfaceConfig{
		TableName: "audit",
		AutoMap:   true,
		Ignore:    []string{"Created"},
	})

	d, err := s.Describe(reflect.TypeFor[Document]())
	require.NoError(t, err)
	assert.Equal(t, "audit", d.TableName())
	assert.Equal(t, []string{"Title", "Owner"}, propertyNames(d))

	d, err = s.Describe(reflect.TypeFor[SignedDocument]())
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Owner", "created_at"}, propertyNames(d))

	created, ok := d.Property("created_at")
	require.True(t, ok)
	assert.Equal(t, "Created", created.Member())

	doc := SignedDocument{Document: Document{Title: "t", Created: "base"}, Created: "derived"}
	assert.Equal(t, "derived", created.Get(reflect.ValueOf(doc)).String())
}

func TestDescribeAutoMapEndToEnd(t *testing.T) {
	s := NewStore()
	d, err := s.Describe(reflect.TypeFor[autoOrder]())
	require.NoError(t, err)
	assert.Equal(t, []string{"pk", "sk", "Status", "Items"}, propertyNames(d))

	in := autoOrder{ID: "p", Kind: "s", Status: OrderShipped, Items: []autoLine{{Name: "a", Sku: "b"}}}
	w := NewWriter(nil)
	require.NoError(t, s.WriteItem(w, &in))
	want := `{"pk":{"S":"p"},"sk":{"S":"s"},"Status":{"N":"2"},"Items":{"L":[{"M":{"Name":{"S":"a"},"Sku":{"S":"b"}}}]}}`
	assert.Equal(t, want, string(w.Bytes()))

	var out autoOrder
	require.NoError(t, s.ReadItem(NewBytesReader([]byte(want)), &out))
	assert.Equal(t, in, out)
}

func TestDescribeCollisionKeepsBaseMember(t *testing.T) {
	d, err := NewStore().Describe(reflect.TypeFor[renamedKey]())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x"}, propertyNames(d))

	id, ok := d.Property("id")
	require.True(t, ok)
	assert.Equal(t, "ID", id.Member())
	_, ok = d.Member("Other")
	assert.False(t, ok)

	item, err := NewStore().MarshalItem(&renamedKey{keyed: keyed{ID: "a"}, Other: "b", X: "c"})
	require.NoError(t, err)
	out, err := EncodeItemJSON(item)
	require.NoError(t, err)
	assert.Equal(t, `{"id":{"S":"a"},"x":{"S":"c"}}`, string(out))
}

func TestDescribeTableNamePrecedence(t *testing.T) {
	t.Run("marker", func(t *testing.T) {
		d, err := NewStore().Describe(reflect.TypeFor[Invoice]())
		require.NoError(t, err)
		assert.Equal(t, "invoices", d.TableName())
	})

	t.Run("type config beats marker", func(t *testing.T) {
		s := NewStore()
		RegisterType[Invoice](s, TypeConfig{TableName: "billing"})
		d, err := s.Describe(reflect.TypeFor[Invoice]())
		require.NoError(t, err)
		assert.Equal(t, "billing", d.TableName())
	})

	t.Run("interface beats type", func(t *testing.T) {
		s := NewStore()
		RegisterType[Invoice](s, TypeConfig{TableName: "billing"})
		s.RegisterInterface(reflect.TypeFor[Auditable](), InterfaceConfig{TableName: "audit"})
		d, err := s.Describe(reflect.TypeFor[Invoice]())
		require.NoError(t, err)
		assert.Equal(t, "audit", d.TableName())
	})

	t.Run("base level first", func(t *testing.T) {
		type base struct {
			_  TableName `ddb:"base_table"`
			ID string    `ddb:"id,pk"`
		}
		type derived struct {
			base
			_ TableName `ddb:"derived_table"`
		}
		d, err := NewStore().Describe(reflect.TypeFor[derived]())
		require.NoError(t, err)
		assert.Equal(t, "base_table", d.TableName())
	})
}

func TestDescribeInterfaceConstructor(t *testing.T) {
	s := NewStore()
	RegisterType[Shape](s, TypeConfig{New: func() any { return &square{} }})

	d, err := s.Describe(reflect.TypeFor[Shape]())
	require.NoError(t, err)
	assert.Equal(t, CategoryObject, d.Category())
	assert.Equal(t, []string{"side"}, propertyNames(d))

	inst := d.New()
	_, ok := inst.Interface().(*square)
	assert.True(t, ok)

	in := Drawing{Title: "box", Shape: &square{Side: 2}}
	item, err := s.MarshalItem(in)
	require.NoError(t, err)

	var out Drawing
	require.NoError(t, s.UnmarshalItem(item, &out))
	assert.Equal(t, in, out)
}

func TestDescribeInterfaceWithoutConstructor(t *testing.T) {
	s := NewStore()
	_, err := s.Describe(reflect.TypeFor[Shape]())
	var consErr *ConstructionError
	require.ErrorAs(t, err, &consErr)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	// Writing works from the dynamic type; reading has nothing to construct.
	item, err := s.MarshalItem(Drawing{Title: "box", Shape: &square{Side: 3}})
	require.NoError(t, err)
	var out Drawing
	err = s.UnmarshalItem(item, &out)
	assert.ErrorAs(t, err, &consErr)
}

func TestDescribeInvalidConstructor(t *testing.T) {
	cases := map[string]func() any{
		"nil":         func() any { return nil },
		"value":       func() any { return square{} },
		"wrong type":  func() any { return &Document{} },
		"nil pointer": func() any { return (*square)(nil) },
		"non-struct":  func() any { v := 1.0; return &v },
	}
	for name, newFn := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewStore()
			RegisterType[Shape](s, TypeConfig{New: newFn})
			_, err := s.Describe(reflect.TypeFor[Shape]())
			var consErr *ConstructionError
			assert.ErrorAs(t, err, &consErr)
		})
	}
}

func TestDescribeSelfReferential(t *testing.T) {
	s := NewStore()
	d, err := s.Describe(reflect.TypeFor[Node]())
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "children", "next"}, propertyNames(d))

	list, err := s.Describe(reflect.TypeFor[[]Node]())
	require.NoError(t, err)
	assert.Equal(t, CategoryEnumerable, list.Category())
	elem, err := list.Element()
	require.NoError(t, err)
	assert.Same(t, d, elem)

	tree := Node{
		Name: "root",
		Children: []Node{
			{Name: "a", Next: &Node{Name: "b"}},
			{Name: "c", Children: []Node{{Name: "d"}}},
		},
	}
	item, err := s.MarshalItem(tree)
	require.NoError(t, err)
	var out Node
	require.NoError(t, s.UnmarshalItem(item, &out))
	assert.Equal(t, tree, out)
}

func TestDescribeCategories(t *testing.T) {
	s := NewStore()
	cases := []struct {
		typ  reflect.Type
		cat  Category
		elem reflect.Type
	}{
		{reflect.TypeFor[string](), CategoryValue, nil},
		{reflect.TypeFor[[]byte](), CategoryValue, nil},
		{reflect.TypeFor[[]int](), CategoryEnumerable, reflect.TypeFor[int]()},
		{reflect.TypeFor[[3]string](), CategoryEnumerable, reflect.TypeFor[string]()},
		{reflect.TypeFor[map[string]struct{}](), CategoryEnumerable, reflect.TypeFor[string]()},
		{reflect.TypeFor[map[string]float64](), CategoryDictionary, reflect.TypeFor[float64]()},
		{reflect.TypeFor[LineItem](), CategoryObject, nil},
	}
	for _, tc := range cases {
		t.Run(tc.typ.String(), func(t *testing.T) {
			d, err := s.Describe(tc.typ)
			require.NoError(t, err)
			assert.Equal(t, tc.cat, d.Category())
			assert.Equal(t, tc.elem, d.ElementType())
		})
	}
}

func TestDescribeUnsupportedKind(t *testing.T) {
	type withChan struct {
		C chan int `ddb:"c"`
	}
	_, err := NewStore().Describe(reflect.TypeFor[withChan]())
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "unsupported kind chan")
}

func TestCategoryAndRoleStrings(t *testing.T) {
	assert.Equal(t, "Object", CategoryObject.String())
	assert.Equal(t, "Dictionary", CategoryDictionary.String())
	assert.Equal(t, "PartitionKey", RolePartitionKey.String())
	assert.Equal(t, "SortKey", RoleSortKey.String())
}
