package dynacodec

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// MaxBatchSize is the maximum number of items allowed in a DynamoDB batch operation.
	MaxBatchSize = 25
)

// DynamoDBClient interface for easier testing and connection management.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Clock is a function type that returns the current time for dependency injection.
type Clock func() time.Time

// DefaultClock returns the current UTC time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// Table builds DynamoDB requests for mapped types. Keys, the table name and the
// version attribute all come from the schema of the value being marshaled.
type Table struct {
	TableName     string        // Overrides the table name declared by mapped types
	Store         *Store        // Store resolving schemas; nil uses the default store
	PaginationTTL time.Duration // TTL for pagination cursors stored in the table
	Tick          Clock         // Function to get the current time for cursor expiry
}

// NewTable creates a new Table with default configuration. An empty tableName
// uses the table declared by each mapped type.
func NewTable(tableName string) *Table {
	return &Table{
		TableName:     tableName,
		PaginationTTL: 24 * time.Hour,
		Tick:          DefaultClock,
	}
}

func (t *Table) now() time.Time {
	if t.Tick != nil {
		return t.Tick()
	}
	return DefaultClock()
}

func (t *Table) store() *Store {
	if t.Store != nil {
		return t.Store
	}
	return defaultStore
}

func (t *Table) nameFor(d *ClassDescriptor) (string, error) {
	if t.TableName != "" {
		return t.TableName, nil
	}
	if d.tableName != "" {
		return d.tableName, nil
	}
	return "", configErr(d.typ, "no table name declared")
}

// MarshalKey returns the primary key attributes of in.
func (t *Table) MarshalKey(in any) (Item, error) {
	sv, d, err := t.store().itemSource(reflect.ValueOf(in))
	if err != nil {
		return nil, err
	}
	return marshalKey(d, sv)
}

func marshalKey(d *ClassDescriptor, sv reflect.Value) (Item, error) {
	if d.partitionKey == nil {
		return nil, configErr(d.typ, "no partition key declared")
	}
	key := Item{}
	for _, p := range []*PropertyDescriptor{d.partitionKey, d.sortKey} {
		if p == nil {
			continue
		}
		av, err := p.converter.Write(p.Get(sv))
		if err != nil {
			return nil, fmt.Errorf("key attribute %q: %w", p.name, err)
		}
		if isNull(av) {
			return nil, conversionErr(p.typ, nil, "key attribute %q is null", p.name)
		}
		key[p.name] = av
	}
	return key, nil
}

// MarshalPut marshals the input into a dynamodb put item request. If the type
// declares a version attribute, the stored version is incremented and the
// request is conditioned on the current version: a zero version requires that
// no item exists yet.
func (t *Table) MarshalPut(in any) (*dynamodb.PutItemInput, error) {
	sv, d, err := t.store().itemSource(reflect.ValueOf(in))
	if err != nil {
		return nil, err
	}
	name, err := t.nameFor(d)
	if err != nil {
		return nil, err
	}
	item, err := writeItem(d, sv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(name),
		Item:      item,
	}
	if d.version == nil {
		return input, nil
	}

	current, next, err := nextVersion(d.version, sv)
	if err != nil {
		return nil, err
	}
	item[d.version.name] = next

	attr := expression.Name(d.version.name)
	cond := expression.AttributeNotExists(attr)
	if current != 0 {
		cond = attr.Equal(expression.Value(current))
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}
	input.ConditionExpression = expr.Condition()
	input.ExpressionAttributeNames = expr.Names()
	input.ExpressionAttributeValues = expr.Values()
	return input, nil
}

// nextVersion returns the current version of sv and the incremented version,
// written through the property's converter.
func nextVersion(p *PropertyDescriptor, sv reflect.Value) (int64, types.AttributeValue, error) {
	v := p.Get(sv)
	next := reflect.New(v.Type()).Elem()

	var current int64
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		current = v.Int()
		if current == math.MaxInt64 || next.OverflowInt(current+1) {
			return 0, nil, conversionErr(p.typ, nil, "version attribute %q overflows at %d", p.name, current)
		}
		next.SetInt(current + 1)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u >= math.MaxInt64 || next.OverflowUint(u+1) {
			return 0, nil, conversionErr(p.typ, nil, "version attribute %q overflows at %d", p.name, u)
		}
		current = int64(u)
		next.SetUint(u + 1)
	default:
		return 0, nil, configErr(p.typ, "version attribute %q must be an integer", p.name)
	}

	av, err := p.converter.Write(next)
	if err != nil {
		return 0, nil, err
	}
	return current, av, nil
}

// MarshalBatch marshals the input into multiple batch write put requests. Since there is a
// limit on how many requests can be contained in a single input, the requests are chunked
// in sizes of 25 or less. Version conditions are not applied to batch writes.
func (t *Table) MarshalBatch(in ...any) ([]*dynamodb.BatchWriteItemInput, error) {
	var (
		batches []*dynamodb.BatchWriteItemInput
		pending = map[string][]types.WriteRequest{}
		count   int
	)
	flush := func() {
		if count > 0 {
			batches = append(batches, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			pending = map[string][]types.WriteRequest{}
			count = 0
		}
	}

	for i, v := range in {
		sv, d, err := t.store().itemSource(reflect.ValueOf(v))
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		name, err := t.nameFor(d)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		item, err := writeItem(d, sv)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal item %d: %w", i, err)
		}
		pending[name] = append(pending[name], types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
		if count++; count == MaxBatchSize {
			flush()
		}
	}
	flush()
	return batches, nil
}

// MarshalGet marshals the input into a get item request. Only the key members of
// in need to be set.
func (t *Table) MarshalGet(in any) (*dynamodb.GetItemInput, error) {
	name, key, err := t.keyRequest(in)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemInput{
		TableName: aws.String(name),
		Key:       key,
	}, nil
}

// MarshalDelete marshals the input into a delete item request. Only the key
// members of in need to be set.
func (t *Table) MarshalDelete(in any) (*dynamodb.DeleteItemInput, error) {
	name, key, err := t.keyRequest(in)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DeleteItemInput{
		TableName: aws.String(name),
		Key:       key,
	}, nil
}

func (t *Table) keyRequest(in any) (string, Item, error) {
	sv, d, err := t.store().itemSource(reflect.ValueOf(in))
	if err != nil {
		return "", nil, err
	}
	name, err := t.nameFor(d)
	if err != nil {
		return "", nil, err
	}
	key, err := marshalKey(d, sv)
	if err != nil {
		return "", nil, err
	}
	return name, key, nil
}

// Put stores in with a single put item request.
func (t *Table) Put(ctx context.Context, client DynamoDBClient, in any) error {
	input, err := t.MarshalPut(in)
	if err != nil {
		return err
	}
	if _, err := client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// Get retrieves the item whose key members are set on out and decodes it into
// out. It returns ErrItemNotFound when no item exists.
func (t *Table) Get(ctx context.Context, client DynamoDBClient, out any) error {
	input, err := t.MarshalGet(out)
	if err != nil {
		return err
	}
	result, err := client.GetItem(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to get item: %w", err)
	}
	if len(result.Item) == 0 {
		return ErrItemNotFound
	}
	if err := t.store().UnmarshalItem(result.Item, out); err != nil {
		return fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return nil
}

// Delete removes the item whose key members are set on in.
func (t *Table) Delete(ctx context.Context, client DynamoDBClient, in any) error {
	input, err := t.MarshalDelete(in)
	if err != nil {
		return err
	}
	if _, err := client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// IsConditionFailed reports whether err was caused by a failed put condition,
// such as a stale version.
func IsConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
