package dynamock

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nisimpson/dynacodec"
)

type Counter struct {
	Shard  int64  `ddb:"shard,pk"`
	Digest []byte `ddb:"digest,sk"`
	Hits   int    `ddb:"hits"`
}

type Label struct {
	Name *string `ddb:"name,pk"`
}

func describe[T any](t *testing.T) *dynacodec.ClassDescriptor {
	t.Helper()
	d, err := dynacodec.SchemaOf[T]()
	if err != nil {
		t.Fatalf("failed to describe type: %v", err)
	}
	return d
}

func TestNewLocalDynamoDB(t *testing.T) {
	local, err := NewLocalDynamoDB(context.Background(), 8001)
	if err != nil {
		t.Fatalf("failed to create local client: %v", err)
	}
	if local.Client == nil {
		t.Error("Client is nil")
	}
	if local.Endpoint != "http://localhost:8001" {
		t.Errorf("expected endpoint http://localhost:8001, got %s", local.Endpoint)
	}
	if local.Port != 8001 {
		t.Errorf("expected port 8001, got %d", local.Port)
	}
}

func TestCreateTableInput(t *testing.T) {
	input, err := CreateTableInput(describe[Widget](t), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(input.TableName) != "widgets" {
		t.Errorf("expected table widgets, got %s", aws.ToString(input.TableName))
	}
	if input.BillingMode != types.BillingModePayPerRequest {
		t.Errorf("expected pay per request billing, got %s", input.BillingMode)
	}
	assertKeys(t, input.KeySchema, input.AttributeDefinitions, []string{"pk", "sk"}, []types.ScalarAttributeType{
		types.ScalarAttributeTypeS,
		types.ScalarAttributeTypeS,
	})

	input, err = CreateTableInput(describe[Widget](t), "widgets-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aws.ToString(input.TableName) != "widgets-test" {
		t.Errorf("expected table widgets-test, got %s", aws.ToString(input.TableName))
	}
}

func TestCreateTableInput_KeyTypes(t *testing.T) {
	input, err := CreateTableInput(describe[Counter](t), "counters")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKeys(t, input.KeySchema, input.AttributeDefinitions, []string{"shard", "digest"}, []types.ScalarAttributeType{
		types.ScalarAttributeTypeN,
		types.ScalarAttributeTypeB,
	})

	input, err = CreateTableInput(describe[Label](t), "labels")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertKeys(t, input.KeySchema, input.AttributeDefinitions, []string{"name"}, []types.ScalarAttributeType{
		types.ScalarAttributeTypeS,
	})
}

func TestCreateTableInput_Errors(t *testing.T) {
	if _, err := CreateTableInput(describe[Counter](t), ""); err == nil {
		t.Error("expected error for missing table name")
	}
	if _, err := CreateTableInput(describe[dynacodec.PageInfo](t), "pages"); err == nil {
		t.Error("expected error for missing partition key")
	}
}

func assertKeys(t *testing.T, schema []types.KeySchemaElement, defs []types.AttributeDefinition, names []string, kinds []types.ScalarAttributeType) {
	t.Helper()
	if len(schema) != len(names) || len(defs) != len(names) {
		t.Fatalf("expected %d keys, got schema %d and definitions %d", len(names), len(schema), len(defs))
	}
	for i, name := range names {
		wantType := types.KeyTypeHash
		if i == 1 {
			wantType = types.KeyTypeRange
		}
		if aws.ToString(schema[i].AttributeName) != name || schema[i].KeyType != wantType {
			t.Errorf("key %d: expected %s %s, got %s %s", i, name, wantType, aws.ToString(schema[i].AttributeName), schema[i].KeyType)
		}
		if aws.ToString(defs[i].AttributeName) != name || defs[i].AttributeType != kinds[i] {
			t.Errorf("definition %d: expected %s %s, got %s %s", i, name, kinds[i], aws.ToString(defs[i].AttributeName), defs[i].AttributeType)
		}
	}
}

func TestLocalDynamoDB_WaitForAvailable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping in short mode")
	}
	local, err := NewLocalDynamoDB(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to create local client: %v", err)
	}
	if err := local.WaitForAvailable(context.Background(), 100*time.Millisecond); err == nil {
		t.Error("expected nothing to listen on port 1")
	}
}
