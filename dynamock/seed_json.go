package dynamock

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/nisimpson/dynacodec"
)

// Seeder writes test data into a table.
type Seeder struct {
	client dynacodec.DynamoDBClient
	table  *dynacodec.Table
}

// NewSeeder creates a seeder for tableName. An empty tableName uses the table
// declared by each seeded type.
func NewSeeder(client dynacodec.DynamoDBClient, tableName string) *Seeder {
	return &Seeder{
		client: client,
		table:  dynacodec.NewTable(tableName),
	}
}

// Seed puts each value with a single request, so version conditions apply.
func (s *Seeder) Seed(ctx context.Context, values ...any) error {
	for i, v := range values {
		if err := s.table.Put(ctx, s.client, v); err != nil {
			return fmt.Errorf("failed to seed item %d: %w", i, err)
		}
	}
	return nil
}

// SeedBatch writes values with batch write requests.
func (s *Seeder) SeedBatch(ctx context.Context, values ...any) error {
	batches, err := s.table.MarshalBatch(values...)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		if _, err := s.client.BatchWriteItem(ctx, batch); err != nil {
			return fmt.Errorf("failed to batch write: %w", err)
		}
	}
	return nil
}

// SeedFromJSON reads a JSON array of items in wire form from r and puts each
// one into the table. Items are streamed, so the document is never held in memory
// as a whole. Returns the number of items saved.
//
//	[
//	  {"pk": {"S": "order#1"}, "sk": {"S": "order"}, "total": {"N": "12.5"}},
//	  {"pk": {"S": "order#2"}, "sk": {"S": "order"}, "total": {"N": "3"}}
//	]
func (s *Seeder) SeedFromJSON(ctx context.Context, r io.Reader) (int, error) {
	if s.table.TableName == "" {
		return 0, fmt.Errorf("seeding raw items requires a table name")
	}

	reader := dynacodec.NewReader(r)
	count := 0
	for {
		more, err := reader.Next()
		if err != nil {
			return count, fmt.Errorf("failed to parse JSON document: %w", err)
		}
		if !more {
			return count, nil
		}
		item, err := reader.ReadAttributes()
		if err != nil {
			return count, fmt.Errorf("failed to read item at index %d: %w", count, err)
		}
		if len(item) == 0 {
			return count, fmt.Errorf("item at index %d is empty", count)
		}
		if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.table.TableName),
			Item:      item,
		}); err != nil {
			return count, fmt.Errorf("failed to seed item at index %d: %w", count, err)
		}
		count++
	}
}
