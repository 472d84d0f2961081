package dynacodec

import (
	"reflect"
)

// Category classifies the mapped shape of a type.
type Category int

const (
	CategoryValue      Category = iota // scalar wire value (S, N, B, BOOL)
	CategoryObject                     // struct mapped to an item or M attribute
	CategoryEnumerable                 // list or set
	CategoryDictionary                 // map with string-like keys
)

func (c Category) String() string {
	switch c {
	case CategoryValue:
		return "Value"
	case CategoryObject:
		return "Object"
	case CategoryEnumerable:
		return "Enumerable"
	case CategoryDictionary:
		return "Dictionary"
	}
	return "Category(?)"
}

// Role is the key role a property plays in its table.
type Role int

const (
	RolePlain Role = iota
	RolePartitionKey
	RoleSortKey
)

func (r Role) String() string {
	switch r {
	case RolePlain:
		return "Plain"
	case RolePartitionKey:
		return "PartitionKey"
	case RoleSortKey:
		return "SortKey"
	}
	return "Role(?)"
}

// PropertyDescriptor describes one mapped member of a struct.
type PropertyDescriptor struct {
	name      string
	member    string
	typ       reflect.Type
	role      Role
	version   bool
	omitEmpty bool
	index     []int
	converter Converter
}

// Name returns the wire attribute name.
func (p *PropertyDescriptor) Name() string { return p.name }

// Member returns the Go field name.
func (p *PropertyDescriptor) Member() string { return p.member }

// Type returns the declared field type.
func (p *PropertyDescriptor) Type() reflect.Type { return p.typ }

// Role returns the key role of the property.
func (p *PropertyDescriptor) Role() Role { return p.role }

// IsVersion reports whether the property holds the optimistic lock version.
func (p *PropertyDescriptor) IsVersion() bool { return p.version }

// OmitEmpty reports whether zero values are left out of written documents.
func (p *PropertyDescriptor) OmitEmpty() bool { return p.omitEmpty }

// Converter returns the converter bound to the property.
func (p *PropertyDescriptor) Converter() Converter { return p.converter }

// Get returns the field value of obj, which must be a value of the struct the
// property was resolved from.
func (p *PropertyDescriptor) Get(obj reflect.Value) reflect.Value {
	return obj.FieldByIndex(p.index)
}

// Set assigns v to the field of obj. obj must be addressable.
func (p *PropertyDescriptor) Set(obj, v reflect.Value) {
	obj.FieldByIndex(p.index).Set(v)
}

// ClassDescriptor is the resolved, immutable schema of a type. Descriptors are
// obtained from [Store.Describe] and shared by every caller.
type ClassDescriptor struct {
	typ       reflect.Type
	category  Category
	converter Converter
	tableName string

	properties   []*PropertyDescriptor
	byName       map[string]*PropertyDescriptor
	byMember     map[string]*PropertyDescriptor
	partitionKey *PropertyDescriptor
	sortKey      *PropertyDescriptor
	version      *PropertyDescriptor

	// concrete is the struct type instances are built from; it differs from typ
	// for interface types with a registered constructor.
	concrete reflect.Type
	newFn    func() reflect.Value

	store    *Store
	elemType reflect.Type
}

// Type returns the described type.
func (d *ClassDescriptor) Type() reflect.Type { return d.typ }

// Category returns the mapped shape of the type.
func (d *ClassDescriptor) Category() Category { return d.category }

// Converter returns the converter selected for the type.
func (d *ClassDescriptor) Converter() Converter { return d.converter }

// TableName returns the table the type is stored in, or an empty string.
func (d *ClassDescriptor) TableName() string { return d.tableName }

// Properties returns the mapped properties in definition order. The slice is
// shared and must not be modified.
func (d *ClassDescriptor) Properties() []*PropertyDescriptor { return d.properties }

// Property returns the property mapped to the wire attribute name.
func (d *ClassDescriptor) Property(name string) (*PropertyDescriptor, bool) {
	p, ok := d.byName[name]
	return p, ok
}

// Member returns the property declared by the Go field name.
func (d *ClassDescriptor) Member(name string) (*PropertyDescriptor, bool) {
	p, ok := d.byMember[name]
	return p, ok
}

// PartitionKey returns the partition key property, or nil.
func (d *ClassDescriptor) PartitionKey() *PropertyDescriptor { return d.partitionKey }

// SortKey returns the sort key property, or nil.
func (d *ClassDescriptor) SortKey() *PropertyDescriptor { return d.sortKey }

// Version returns the version property, or nil.
func (d *ClassDescriptor) Version() *PropertyDescriptor { return d.version }

// New returns a pointer to a new zero instance of the described struct. It returns
// the zero Value for non-object categories.
func (d *ClassDescriptor) New() reflect.Value {
	if d.newFn == nil {
		return reflect.Value{}
	}
	return d.newFn()
}

// ElementType returns the element type of Enumerable and Dictionary descriptors.
func (d *ClassDescriptor) ElementType() reflect.Type { return d.elemType }

// Element returns the descriptor of the element type. It is resolved through the
// store, so self-referential types return the same published descriptor.
func (d *ClassDescriptor) Element() (*ClassDescriptor, error) {
	if d.elemType == nil {
		return nil, nil
	}
	return d.store.Describe(d.elemType)
}

// level is one struct in an embedding chain, with the index path from the root.
type level struct {
	typ   reflect.Type
	index []int
}

// buildObject resolves the property set of struct type st. t is the described type,
// which is st itself or an interface implemented by *st.
func (s *Store) buildObject(t, st reflect.Type) (*ClassDescriptor, error) {
	d := &ClassDescriptor{
		typ:      t,
		category: CategoryObject,
		byName:   map[string]*PropertyDescriptor{},
		byMember: map[string]*PropertyDescriptor{},
		concrete: st,
		store:    s,
	}

	ifaces := s.interfacesOf(st)
	levels := s.embeddingChain(st, nil, nil)

	autoMap := false
	ignored := map[string]bool{}
	for _, ic := range ifaces {
		autoMap = autoMap || ic.AutoMap
		for _, name := range ic.Ignore {
			ignored[name] = true
		}
	}
	for _, lv := range levels {
		autoMap = autoMap || s.typeConfig(lv.typ).AutoMap || hasMarker(lv.typ, autoMapType)
	}
	if t != st {
		autoMap = autoMap || s.typeConfig(t).AutoMap
	}

	for _, lv := range levels {
		cfg := s.typeConfig(lv.typ)
		for i := 0; i < lv.typ.NumField(); i++ {
			f := lv.typ.Field(i)
			if s.isAncestor(f, cfg) || isMarkerType(f.Type) || !f.IsExported() {
				continue
			}

			m, explicit, err := s.fieldMapping(lv.typ, f, cfg)
			if err != nil {
				return nil, err
			}
			if m.ignore {
				continue
			}
			if !explicit {
				if !autoMap || ignored[f.Name] {
					continue
				}
				m = mapping{name: f.Name}
			}
			if _, claimed := d.byName[m.name]; claimed {
				s.logger().Debug("dropping member with claimed attribute name",
					"type", st.String(),
					"member", f.Name,
					"attribute", m.name,
				)
				continue
			}

			conv, err := s.converter(f.Type, m.converter)
			if err != nil {
				return nil, err
			}
			p := &PropertyDescriptor{
				name:      m.name,
				member:    f.Name,
				typ:       f.Type,
				role:      m.role,
				version:   m.version,
				omitEmpty: m.omitEmpty,
				index:     append(append([]int{}, lv.index...), i),
				converter: conv,
			}

			switch p.role {
			case RolePartitionKey:
				if d.partitionKey != nil {
					return nil, configErr(st, "multiple partition key attributes (%q, %q)", d.partitionKey.name, p.name)
				}
				d.partitionKey = p
			case RoleSortKey:
				if d.sortKey != nil {
					return nil, configErr(st, "multiple sort key attributes (%q, %q)", d.sortKey.name, p.name)
				}
				d.sortKey = p
			}
			if d.version == nil && p.version {
				d.version = p
			}

			d.properties = append(d.properties, p)
			d.byName[p.name] = p
			if _, ok := d.byMember[p.member]; !ok {
				d.byMember[p.member] = p
			}
		}
	}

	d.tableName = s.tableNameOf(t, st, ifaces, levels)
	return d, nil
}

// embeddingChain lists st and the structs it embeds by value, most-base first.
func (s *Store) embeddingChain(st reflect.Type, index []int, out []level) []level {
	cfg := s.typeConfig(st)
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if s.isAncestor(f, cfg) {
			out = s.embeddingChain(f.Type, append(append([]int{}, index...), i), out)
		}
	}
	return append(out, level{typ: st, index: index})
}

// isAncestor reports whether f is a struct embedded by value without an explicit
// mapping, whose members are promoted into the embedding struct.
func (s *Store) isAncestor(f reflect.StructField, cfg TypeConfig) bool {
	if !f.Anonymous || f.Type.Kind() != reflect.Struct || isMarkerType(f.Type) {
		return false
	}
	if tag, ok := f.Tag.Lookup(s.opts.TagKey); ok && tag != "" {
		return false
	}
	if _, ok := cfg.Fields[f.Name]; ok {
		return false
	}
	return true
}

func (s *Store) tableNameOf(t, st reflect.Type, ifaces []InterfaceConfig, levels []level) string {
	for _, ic := range ifaces {
		if ic.TableName != "" {
			return ic.TableName
		}
	}
	for _, lv := range levels {
		if name := s.typeConfig(lv.typ).TableName; name != "" {
			return name
		}
		if name := s.markerTableName(lv.typ); name != "" {
			return name
		}
	}
	if t != st {
		return s.typeConfig(t).TableName
	}
	return ""
}
