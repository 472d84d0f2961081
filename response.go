package dynacodec

import (
	"fmt"
	"io"
	"reflect"
)

// PageInfo holds the envelope fields of a Query or Scan response.
type PageInfo struct {
	Count            int64
	ScannedCount     int64
	LastEvaluatedKey Item
}

// Page is a decoded Query or Scan response.
type Page[T any] struct {
	PageInfo
	Items []T
}

// DecodePage reads a Query or Scan response body from src, decoding each element
// of Items directly from the token stream into out, which must point to a slice of
// a mapped type. Unknown envelope fields are skipped.
func (s *Store) DecodePage(src io.Reader, out any) (PageInfo, error) {
	var info PageInfo
	target, err := decodeTarget(out)
	if err != nil {
		return info, err
	}
	if target.Kind() != reflect.Slice {
		return info, fmt.Errorf("%w: got %T, want pointer to slice", ErrInvalidTarget, out)
	}

	r := NewReader(src)
	items := reflect.MakeSlice(target.Type(), 0, 0)
	for {
		name, ok, err := r.Field()
		if err != nil {
			return info, err
		}
		if !ok {
			break
		}
		switch name {
		case "Items":
			if r.IsNull() {
				continue
			}
			for i := 0; ; i++ {
				more, err := r.Next()
				if err != nil {
					return info, err
				}
				if !more {
					break
				}
				items = reflect.Append(items, reflect.Zero(target.Type().Elem()))
				if err := s.readFieldsInto(r, items.Index(i)); err != nil {
					return info, fmt.Errorf("failed to decode item %d: %w", i, err)
				}
			}
		case "Count":
			if info.Count, err = r.IntToken(); err != nil {
				return info, err
			}
		case "ScannedCount":
			if info.ScannedCount, err = r.IntToken(); err != nil {
				return info, err
			}
		case "LastEvaluatedKey":
			if r.IsNull() {
				continue
			}
			if info.LastEvaluatedKey, err = r.ReadAttributes(); err != nil {
				return info, fmt.Errorf("failed to decode last key: %w", err)
			}
		default:
			if err := r.Skip(); err != nil {
				return info, err
			}
		}
	}
	target.Set(items)
	return info, nil
}

// DecodeGetItem reads a GetItem response body from src into out. found is false
// when the response holds no item, in which case out is left unchanged.
func (s *Store) DecodeGetItem(src io.Reader, out any) (found bool, err error) {
	target, err := decodeTarget(out)
	if err != nil {
		return false, err
	}
	r := NewReader(src)
	fresh := reflect.New(target.Type()).Elem()
	for {
		name, ok, err := r.Field()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		switch {
		case name != "Item":
			if err := r.Skip(); err != nil {
				return false, err
			}
		case r.IsNull():
		default:
			if err := s.readFieldsInto(r, fresh); err != nil {
				return false, fmt.Errorf("failed to decode item: %w", err)
			}
			found = true
		}
	}
	if found {
		target.Set(fresh)
	}
	return found, nil
}

// DecodePage decodes a Query or Scan response with the default store.
func DecodePage[T any](src io.Reader) (*Page[T], error) {
	var page Page[T]
	info, err := defaultStore.DecodePage(src, &page.Items)
	if err != nil {
		return nil, err
	}
	page.PageInfo = info
	return &page, nil
}

// DecodeGetItem decodes a GetItem response with the default store.
func DecodeGetItem(src io.Reader, out any) (bool, error) {
	return defaultStore.DecodeGetItem(src, out)
}
