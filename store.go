package dynacodec

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options configures a [Store].
type Options struct {
	// TagKey is the struct tag key read for member mappings. Defaults to "ddb".
	TagKey string

	// Logger receives debug records about schema resolution and converter
	// selection. Defaults to slog.Default().
	Logger *slog.Logger
}

// Store resolves and caches the schema and converter of every mapped type. A Store
// is safe for concurrent use; each schema and converter is built at most once and
// the published result is shared by all callers. Failed builds are not cached, so
// a later call retries.
type Store struct {
	opts Options

	mu         sync.RWMutex
	types      map[reflect.Type]TypeConfig
	interfaces []registeredInterface
	named      map[string]ConverterFactory
	exact      map[reflect.Type]ConverterFactory

	schemas    sync.Map // reflect.Type -> *entry[*ClassDescriptor]
	converters sync.Map // converterKey -> *entry[Converter]
}

type registeredInterface struct {
	typ reflect.Type
	cfg InterfaceConfig
}

type converterKey struct {
	typ  reflect.Type
	name string
}

type entry[T any] struct {
	once sync.Once
	val  T
	err  error
}

// load returns the value cached under key, building it with build on first use.
// Concurrent callers of the same key wait for a single build.
func load[K comparable, T any](m *sync.Map, key K, build func() (T, error)) (T, error) {
	v, _ := m.LoadOrStore(key, &entry[T]{})
	e := v.(*entry[T])
	e.once.Do(func() { e.val, e.err = build() })
	if e.err != nil {
		m.CompareAndDelete(key, e)
	}
	return e.val, e.err
}

// NewStore returns a store with the built-in converters registered.
func NewStore(opts ...func(*Options)) *Store {
	s := &Store{
		types: map[reflect.Type]TypeConfig{},
		named: map[string]ConverterFactory{},
		exact: map[reflect.Type]ConverterFactory{},
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if s.opts.TagKey == "" {
		s.opts.TagKey = DefaultTagKey
	}

	s.named["set"] = newSliceSetConverter
	s.named["unixtime"] = newUnixTimeConverter
	s.named["text"] = newTextConverter

	s.exact[reflect.TypeOf(time.Time{})] = newTimeConverter
	s.exact[reflect.TypeOf(uuid.UUID{})] = newUUIDConverter
	s.exact[reflect.TypeOf(Number(""))] = newNumberConverter
	return s
}

var defaultStore = NewStore()

// DefaultStore returns the store used by the package level functions.
func DefaultStore() *Store { return defaultStore }

func (s *Store) logger() *slog.Logger {
	if s.opts.Logger != nil {
		return s.opts.Logger
	}
	return slog.Default()
}

// Register maps t with cfg instead of (or in addition to) struct tags. It must be
// called before t is first described.
func (s *Store) Register(t reflect.Type, cfg TypeConfig) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[t] = cfg
}

// RegisterType is a generic shorthand for [Store.Register].
func RegisterType[T any](s *Store, cfg TypeConfig) {
	s.Register(reflect.TypeFor[T](), cfg)
}

// RegisterInterface applies cfg to every struct type whose value or pointer
// implements iface. It panics if iface is not an interface type.
func (s *Store) RegisterInterface(iface reflect.Type, cfg InterfaceConfig) {
	if iface.Kind() != reflect.Interface {
		panic(fmt.Sprintf("dynacodec: RegisterInterface of non-interface type %s", iface))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interfaces = append(s.interfaces, registeredInterface{typ: iface, cfg: cfg})
}

// RegisterConverter makes factory available under name, for use in the converter
// tag option or [FieldConfig.Converter].
func (s *Store) RegisterConverter(name string, factory ConverterFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.named[name] = factory
}

// RegisterTypeConverter makes factory the converter of every member declared
// with exactly type t.
func (s *Store) RegisterTypeConverter(t reflect.Type, factory ConverterFactory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exact[t] = factory
}

func (s *Store) typeConfig(t reflect.Type) TypeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types[t]
}

func (s *Store) interfacesOf(st reflect.Type) []InterfaceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []InterfaceConfig
	pt := reflect.PointerTo(st)
	for _, ri := range s.interfaces {
		if st.Implements(ri.typ) || pt.Implements(ri.typ) {
			out = append(out, ri.cfg)
		}
	}
	return out
}

func (s *Store) namedFactory(name string) (ConverterFactory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.named[name]
	return f, ok
}

func (s *Store) exactFactory(t reflect.Type) (ConverterFactory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.exact[t]
	return f, ok
}

// Describe returns the schema of t. Pointer types describe their element type.
func (s *Store) Describe(t reflect.Type) (*ClassDescriptor, error) {
	if t == nil {
		return nil, configErr(nil, "nil type")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return load(&s.schemas, t, func() (*ClassDescriptor, error) {
		d, err := s.buildDescriptor(t)
		if err != nil {
			s.logger().Debug("schema resolution failed", "type", t.String(), "error", err)
			return nil, err
		}
		s.logger().Debug("resolved schema",
			"type", t.String(),
			"category", d.category.String(),
			"properties", len(d.properties),
			"table", d.tableName,
		)
		return d, nil
	})
}

// Converter returns the converter for members declared with type t. A non-empty
// name selects a registered named converter.
func (s *Store) Converter(t reflect.Type, name string) (Converter, error) {
	if t == nil {
		return nil, configErr(nil, "nil type")
	}
	return s.converter(t, name)
}

func (s *Store) converter(t reflect.Type, name string) (Converter, error) {
	return load(&s.converters, converterKey{typ: t, name: name}, func() (Converter, error) {
		c, err := s.newConverter(t, name)
		if err != nil {
			return nil, err
		}
		s.logger().Debug("selected converter",
			"type", t.String(),
			"name", name,
			"converter", fmt.Sprintf("%T", c),
		)
		return c, nil
	})
}

func (s *Store) buildDescriptor(t reflect.Type) (*ClassDescriptor, error) {
	if t.Kind() == reflect.Interface {
		if cfg := s.typeConfig(t); cfg.New != nil {
			return s.buildInterfaceObject(t, cfg.New)
		}
		if t.NumMethod() > 0 {
			return nil, constructErr(t, "interface type has no registered constructor")
		}
	}

	conv, err := s.converter(t, "")
	if err != nil {
		return nil, err
	}

	switch c := conv.(type) {
	case *objectConverter:
		d, err := s.buildObject(t, t)
		if err != nil {
			return nil, err
		}
		d.converter = c
		d.newFn = func() reflect.Value { return reflect.New(t) }
		return d, nil
	case elementer:
		cat, elem := c.element()
		return &ClassDescriptor{typ: t, category: cat, converter: conv, store: s, elemType: elem}, nil
	}
	return &ClassDescriptor{typ: t, category: CategoryValue, converter: conv, store: s}, nil
}

func (s *Store) buildInterfaceObject(t reflect.Type, newFn func() any) (*ClassDescriptor, error) {
	sample := reflect.ValueOf(newFn())
	if !sample.IsValid() || sample.Kind() != reflect.Pointer || sample.IsNil() || sample.Elem().Kind() != reflect.Struct {
		return nil, constructErr(t, "constructor must return a non-nil pointer to a struct")
	}
	if !sample.Type().Implements(t) {
		return nil, constructErr(t, "constructor result %s does not implement the interface", sample.Type())
	}

	d, err := s.buildObject(t, sample.Type().Elem())
	if err != nil {
		return nil, err
	}
	conv, err := s.converter(t, "")
	if err != nil {
		return nil, err
	}
	d.converter = conv
	d.newFn = func() reflect.Value { return reflect.ValueOf(newFn()) }
	return d, nil
}
