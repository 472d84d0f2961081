package dynacodec

import (
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Query searches the partition holding Partition, a value of a mapped type whose
// partition key member is set. The partition key attribute name and the table
// come from its schema.
type Query struct {
	Partition       any                            // Value carrying the partition key
	SortCondition   expression.KeyConditionBuilder // Optional condition on the sort key
	ConditionFilter expression.ConditionBuilder    // Optional filters on the items
	IndexName       string                         // Optional secondary index
	Limit           int                            // Maximum number of items to return
	StartKey        Item                           // Exclusive start key for pagination
	SortDescending  bool                           // Scan direction (default: false)
}

// rawValue passes an already converted attribute value through the expression
// builder unchanged.
type rawValue struct {
	av types.AttributeValue
}

func (r rawValue) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return r.av, nil
}

// SortKey returns a key condition builder on the sort key attribute of the
// partition type, for use in [Query.SortCondition].
func (t *Table) SortKey(partition any) (expression.KeyBuilder, error) {
	_, d, err := t.store().itemSource(reflect.ValueOf(partition))
	if err != nil {
		return expression.KeyBuilder{}, err
	}
	if d.sortKey == nil {
		return expression.KeyBuilder{}, configErr(d.typ, "no sort key declared")
	}
	return expression.Key(d.sortKey.name), nil
}

// MarshalQuery marshals q into a query request.
func (t *Table) MarshalQuery(q *Query) (*dynamodb.QueryInput, error) {
	sv, d, err := t.store().itemSource(reflect.ValueOf(q.Partition))
	if err != nil {
		return nil, err
	}
	name, err := t.nameFor(d)
	if err != nil {
		return nil, err
	}
	if d.partitionKey == nil {
		return nil, configErr(d.typ, "no partition key declared")
	}
	pk, err := d.partitionKey.converter.Write(d.partitionKey.Get(sv))
	if err != nil {
		return nil, fmt.Errorf("key attribute %q: %w", d.partitionKey.name, err)
	}

	// Build the key condition for the partition
	keyCondition := expression.Key(d.partitionKey.name).Equal(expression.Value(rawValue{pk}))
	if q.SortCondition.IsSet() {
		keyCondition = keyCondition.And(q.SortCondition)
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCondition)
	if q.ConditionFilter.IsSet() {
		builder = builder.WithFilter(q.ConditionFilter)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(name),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!q.SortDescending),
	}
	if q.ConditionFilter.IsSet() {
		input.FilterExpression = expr.Filter()
	}
	if q.IndexName != "" {
		input.IndexName = aws.String(q.IndexName)
	}
	if q.Limit > 0 {
		input.Limit = aws.Int32(int32(q.Limit))
	}
	if q.StartKey != nil {
		input.ExclusiveStartKey = q.StartKey
	}
	return input, nil
}
