package dynamock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"reflect"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nisimpson/dynacodec"
)

// DefaultLocalPort is the default port for DynamoDB Local.
const DefaultLocalPort = 8000

// LocalDynamoDB represents a connection to a local DynamoDB instance.
type LocalDynamoDB struct {
	Client   *dynamodb.Client
	Endpoint string
	Port     int
}

// NewLocalClient creates a DynamoDB client configured to connect to a local DynamoDB instance.
// This is useful for integration testing with DynamoDB Local.
//
// Example usage:
//
//	client, err := dynamock.NewLocalClient(ctx, 8000)
//	// Use client with your tests
func NewLocalClient(ctx context.Context, port int) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"), // DynamoDB Local doesn't care about region
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewLocalClientFromConfig(cfg, port), nil
}

// NewLocalClientFromConfig creates a local DynamoDB client using the provided AWS config.
func NewLocalClientFromConfig(cfg aws.Config, port int) *dynamodb.Client {
	cfg.Credentials = aws.AnonymousCredentials{}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(localEndpoint(port))
	})
}

func localEndpoint(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// NewLocalDynamoDB creates a LocalDynamoDB instance with the specified port.
func NewLocalDynamoDB(ctx context.Context, port int) (*LocalDynamoDB, error) {
	client, err := NewLocalClient(ctx, port)
	if err != nil {
		return nil, err
	}
	return &LocalDynamoDB{
		Client:   client,
		Endpoint: localEndpoint(port),
		Port:     port,
	}, nil
}

// IsAvailable checks if DynamoDB Local is running on the configured port.
func (l *LocalDynamoDB) IsAvailable(ctx context.Context) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", l.Port), 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()

	// Make sure it is actually DynamoDB listening
	_, err = l.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	return err == nil
}

// WaitForAvailable waits for DynamoDB Local to become available.
func (l *LocalDynamoDB) WaitForAvailable(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if l.IsAvailable(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("DynamoDB Local not available at %s after %v", l.Endpoint, timeout)
}

// CreateTableInput derives a table definition from the key members of desc. An
// empty tableName uses the table declared by the mapped type.
func CreateTableInput(desc *dynacodec.ClassDescriptor, tableName string) (*dynamodb.CreateTableInput, error) {
	if tableName == "" {
		tableName = desc.TableName()
	}
	if tableName == "" {
		return nil, fmt.Errorf("no table name for %v", desc.Type())
	}
	if desc.PartitionKey() == nil {
		return nil, fmt.Errorf("%v declares no partition key", desc.Type())
	}

	input := &dynamodb.CreateTableInput{
		TableName:   aws.String(tableName),
		BillingMode: types.BillingModePayPerRequest,
	}
	keys := []struct {
		prop *dynacodec.PropertyDescriptor
		kind types.KeyType
	}{
		{desc.PartitionKey(), types.KeyTypeHash},
		{desc.SortKey(), types.KeyTypeRange},
	}
	for _, k := range keys {
		if k.prop == nil {
			continue
		}
		st, err := keyAttributeType(k.prop)
		if err != nil {
			return nil, err
		}
		input.AttributeDefinitions = append(input.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(k.prop.Name()),
			AttributeType: st,
		})
		input.KeySchema = append(input.KeySchema, types.KeySchemaElement{
			AttributeName: aws.String(k.prop.Name()),
			KeyType:       k.kind,
		})
	}
	return input, nil
}

// keyAttributeType reports the scalar type the key converter produces.
func keyAttributeType(p *dynacodec.PropertyDescriptor) (types.ScalarAttributeType, error) {
	t := p.Type()
	v := reflect.Zero(t)
	if t.Kind() == reflect.Pointer {
		v = reflect.New(t.Elem())
		t = t.Elem()
	}
	if (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && t.Elem().Kind() == reflect.Uint8 {
		return types.ScalarAttributeTypeB, nil
	}

	av, err := p.Converter().Write(v)
	if err != nil {
		return "", fmt.Errorf("key attribute %q: %w", p.Name(), err)
	}
	switch dynacodec.TypeOf(av) {
	case dynacodec.DataTypeString:
		return types.ScalarAttributeTypeS, nil
	case dynacodec.DataTypeNumber:
		return types.ScalarAttributeTypeN, nil
	case dynacodec.DataTypeBinary:
		return types.ScalarAttributeTypeB, nil
	}
	return "", fmt.Errorf("key attribute %q is not a scalar", p.Name())
}

// CreateTableFor creates a table keyed the way desc declares and waits for it to
// become active.
func (l *LocalDynamoDB) CreateTableFor(ctx context.Context, desc *dynacodec.ClassDescriptor, tableName string) error {
	input, err := CreateTableInput(desc, tableName)
	if err != nil {
		return err
	}
	if _, err := l.Client.CreateTable(ctx, input); err != nil {
		return fmt.Errorf("failed to create table %s: %w", *input.TableName, err)
	}
	return l.WaitForTableActive(ctx, *input.TableName, 30*time.Second)
}

// WaitForTableActive waits for a table to become active.
func (l *LocalDynamoDB) WaitForTableActive(ctx context.Context, tableName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		output, err := l.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			return fmt.Errorf("failed to describe table %s: %w", tableName, err)
		}
		if output.Table.TableStatus == types.TableStatusActive {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("table %s did not become active within %v", tableName, timeout)
}

// DeleteTable deletes a table and waits for it to be fully deleted.
func (l *LocalDynamoDB) DeleteTable(ctx context.Context, tableName string) error {
	_, err := l.Client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete table %s: %w", tableName, err)
	}
	return l.WaitForTableDeleted(ctx, tableName, 30*time.Second)
}

// WaitForTableDeleted waits for a table to be fully deleted.
func (l *LocalDynamoDB) WaitForTableDeleted(ctx context.Context, tableName string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_, err := l.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return nil
			}
			return fmt.Errorf("error checking table deletion status: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("table %s was not deleted within %v", tableName, timeout)
}

// ListTables returns all table names in the local DynamoDB instance.
func (l *LocalDynamoDB) ListTables(ctx context.Context) ([]string, error) {
	output, err := l.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return output.TableNames, nil
}

// Cleanup deletes all tables in the local DynamoDB instance.
func (l *LocalDynamoDB) Cleanup(ctx context.Context) error {
	tables, err := l.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables for cleanup: %w", err)
	}
	for _, tableName := range tables {
		if err := l.DeleteTable(ctx, tableName); err != nil {
			return fmt.Errorf("failed to delete table %s during cleanup: %w", tableName, err)
		}
	}
	return nil
}
