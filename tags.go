package dynacodec

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// DefaultTagKey is the struct tag key read by stores created without a TagKey option.
const DefaultTagKey = "ddb"

// AutoMap is a marker that maps every exported member of the enclosing struct under
// its own name, unless the member is ignored or mapped explicitly.
//
//	type Profile struct {
//		dynacodec.AutoMap
//		Name  string
//		Email string
//	}
type AutoMap struct{}

// TableName is a marker that names the table the enclosing struct is stored in.
// The table name is read from the field tag.
//
//	type Order struct {
//		_  dynacodec.TableName `ddb:"orders"`
//		ID string              `ddb:"id,pk"`
//	}
type TableName struct{}

var (
	autoMapType   = reflect.TypeOf(AutoMap{})
	tableNameType = reflect.TypeOf(TableName{})
)

func isMarkerType(t reflect.Type) bool {
	return t == autoMapType || t == tableNameType
}

func hasMarker(st reflect.Type, marker reflect.Type) bool {
	for i := 0; i < st.NumField(); i++ {
		if st.Field(i).Type == marker {
			return true
		}
	}
	return false
}

func (s *Store) markerTableName(st reflect.Type) string {
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Type != tableNameType {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get(s.opts.TagKey), ",")
		if name != "" {
			return name
		}
	}
	return ""
}

// TypeConfig maps a type without struct tags. Registering a TypeConfig is
// equivalent to declaring the markers on the type itself; a member configured in
// Fields takes precedence over its struct tag.
type TypeConfig struct {
	// TableName names the table the type is stored in.
	TableName string

	// AutoMap maps every exported member that is not otherwise configured.
	AutoMap bool

	// Fields configures members by Go field name.
	Fields map[string]FieldConfig

	// New constructs instances of interface types. It must return a non-nil
	// pointer to a struct that implements the interface.
	New func() any
}

// FieldConfig maps a single member.
type FieldConfig struct {
	Name      string // wire name; empty uses the field name
	Role      Role
	Version   bool
	OmitEmpty bool
	Ignore    bool
	Converter string // named converter; see [Store.RegisterConverter]
}

// InterfaceConfig applies mapping markers to every struct whose value or pointer
// implements an interface.
type InterfaceConfig struct {
	TableName string
	AutoMap   bool
	Ignore    []string // member names excluded from auto-mapping
}

// mapping is the resolved mapping of a single member.
type mapping struct {
	name      string
	role      Role
	version   bool
	omitEmpty bool
	ignore    bool
	converter string
}

// fieldMapping resolves the explicit mapping of f, declared in struct st. A
// registered FieldConfig wins over the struct tag. explicit is false when the
// member carries no mapping at all.
func (s *Store) fieldMapping(st reflect.Type, f reflect.StructField, cfg TypeConfig) (m mapping, explicit bool, err error) {
	if fc, ok := cfg.Fields[f.Name]; ok {
		if fc.Ignore {
			return mapping{ignore: true}, true, nil
		}
		m = mapping{
			name:      fc.Name,
			role:      fc.Role,
			version:   fc.Version,
			omitEmpty: fc.OmitEmpty,
			converter: fc.Converter,
		}
		if m.name == "" {
			m.name = f.Name
		}
		return m, true, nil
	}

	tag, ok := f.Tag.Lookup(s.opts.TagKey)
	if !ok {
		return mapping{}, false, nil
	}
	m, err = parseTag(tag)
	if err != nil {
		return mapping{}, false, configErr(st, "field %s: %v", f.Name, err)
	}
	if m.name == "" {
		m.name = f.Name
	}
	return m, true, nil
}

// parseTag parses `name,option,...`. A tag of "-" ignores the member.
func parseTag(tag string) (mapping, error) {
	if tag == "-" {
		return mapping{ignore: true}, nil
	}

	name, rest, _ := strings.Cut(tag, ",")
	m := mapping{name: name}
	for rest != "" {
		var opt string
		opt, rest, _ = strings.Cut(rest, ",")
		switch opt := strings.TrimSpace(opt); {
		case opt == "":
		case opt == "pk":
			m.role = RolePartitionKey
		case opt == "sk":
			m.role = RoleSortKey
		case opt == "version":
			m.version = true
		case opt == "omitempty":
			m.omitEmpty = true
		case opt == "set", opt == "unixtime", opt == "text":
			m.converter = opt
		case strings.HasPrefix(opt, "converter="):
			m.converter = strings.TrimPrefix(opt, "converter=")
			if m.converter == "" {
				return mapping{}, errors.New("empty converter name")
			}
		default:
			return mapping{}, fmt.Errorf("unknown tag option %q", opt)
		}
	}
	return m, nil
}
