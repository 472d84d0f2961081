package dynamock

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nisimpson/dynacodec"
)

func recordPuts(t *testing.T) (*MockClient, *[]*dynamodb.PutItemInput) {
	mock := NewMockClient(t)
	var puts []*dynamodb.PutItemInput
	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
		puts = append(puts, params)
		return &dynamodb.PutItemOutput{}, nil
	}
	return mock, &puts
}

func TestSeeder_SeedFromJSON(t *testing.T) {
	mock, puts := recordPuts(t)
	seeder := NewSeeder(mock, "widgets")

	doc := `[
		{"pk": {"S": "w1"}, "sk": {"S": "widget"}, "count": {"N": "3"}},
		{"pk": {"S": "w2"}, "sk": {"S": "widget"}, "tags": {"SS": ["blue", "small"]}}
	]`
	count, err := seeder.SeedFromJSON(context.Background(), strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 items seeded, got %d", count)
	}
	if len(*puts) != 2 {
		t.Fatalf("expected 2 put calls, got %d", len(*puts))
	}

	first := (*puts)[0]
	if aws.ToString(first.TableName) != "widgets" {
		t.Errorf("expected table widgets, got %s", aws.ToString(first.TableName))
	}
	n, ok := first.Item["count"].(*types.AttributeValueMemberN)
	if !ok || n.Value != "3" {
		t.Errorf("expected count N 3, got %#v", first.Item["count"])
	}
	ss, ok := (*puts)[1].Item["tags"].(*types.AttributeValueMemberSS)
	if !ok || len(ss.Value) != 2 {
		t.Errorf("expected tags SS with 2 members, got %#v", (*puts)[1].Item["tags"])
	}
}

func TestSeeder_SeedFromJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		count int
	}{
		{name: "not an array", doc: `{"pk": {"S": "w1"}}`},
		{name: "empty item", doc: `[{}]`},
		{name: "bad value", doc: `[{"pk": {"S": "w1"}}, {"pk": {"X": "w2"}}]`, count: 1},
		{name: "truncated", doc: `[{"pk": {"S": "w1"}}, `, count: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, _ := recordPuts(t)
			count, err := NewSeeder(mock, "widgets").SeedFromJSON(context.Background(), strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if count != tt.count {
				t.Errorf("expected %d items seeded before the error, got %d", tt.count, count)
			}
		})
	}
}

func TestSeeder_SeedFromJSON_RequiresTable(t *testing.T) {
	seeder := NewSeeder(NewMockClient(t), "")
	if _, err := seeder.SeedFromJSON(context.Background(), strings.NewReader(`[]`)); err == nil {
		t.Error("expected error without a table name")
	}
}

func TestSeeder_SeedFromJSON_PutError(t *testing.T) {
	mock := NewMockClient(t)
	boom := errors.New("table missing")
	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
		return nil, boom
	}
	_, err := NewSeeder(mock, "widgets").SeedFromJSON(context.Background(), strings.NewReader(`[{"pk": {"S": "w1"}}]`))
	if !errors.Is(err, boom) {
		t.Errorf("expected put error, got %v", err)
	}
}

func TestSeeder_Seed(t *testing.T) {
	mock, puts := recordPuts(t)
	widgets, err := NewFixture(withKind("widget")).BuildN(3)
	if err != nil {
		t.Fatalf("failed to build fixtures: %v", err)
	}

	if err := NewSeeder(mock, "").Seed(context.Background(), Values(widgets)...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*puts) != 3 {
		t.Fatalf("expected 3 put calls, got %d", len(*puts))
	}
	for i, put := range *puts {
		if aws.ToString(put.TableName) != "widgets" {
			t.Errorf("put %d: expected table widgets, got %s", i, aws.ToString(put.TableName))
		}
		var w Widget
		if err := dynacodec.UnmarshalItem(put.Item, &w); err != nil {
			t.Fatalf("put %d: failed to unmarshal: %v", i, err)
		}
		if w.ID != widgets[i].ID {
			t.Errorf("put %d: expected id %s, got %s", i, widgets[i].ID, w.ID)
		}
	}
}

func TestSeeder_SeedBatch(t *testing.T) {
	mock := NewMockClient(t)
	var written []int
	mock.BatchWriteItemFunc = func(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
		written = append(written, len(params.RequestItems["widgets-test"]))
		return &dynamodb.BatchWriteItemOutput{}, nil
	}

	widgets, err := NewFixture(withKind("widget")).BuildN(30)
	if err != nil {
		t.Fatalf("failed to build fixtures: %v", err)
	}
	if err := NewSeeder(mock, "widgets-test").SeedBatch(context.Background(), Values(widgets)...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(written) != 2 || written[0] != dynacodec.MaxBatchSize || written[1] != 5 {
		t.Errorf("expected batches of 25 and 5, got %v", written)
	}
}
