// Package dynamock provides testing utilities for the dynacodec library.
//
// This package includes:
//   - Expectation-based mock DynamoDB client for unit testing
//   - Local DynamoDB integration utilities
//   - Generated fixtures for mapped types
//   - Test data seeding helpers
//
// # Mock Client
//
// The MockClient fails the test on any call without an expectation:
//
//	mock := dynamock.NewMockClient(t)
//	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
//		return &dynamodb.PutItemOutput{}, nil
//	}
//
//	err := dynacodec.NewTable("").Put(ctx, mock, &order)
//
// # Fixtures
//
// Fixtures are filled with random data and then adjusted by options:
//
//	orders, err := dynamock.NewFixture(func(o *Order) { o.Kind = "order" }).BuildN(10)
//
// # Local DynamoDB
//
// Tables are created from the key members of a mapped type:
//
//	dynamock.WithLocalDynamoDB(t, dynamock.DefaultLocalPort, func(local *dynamock.LocalDynamoDB) {
//		desc, _ := dynacodec.SchemaOf[Order]()
//		dynamock.WithIsolatedTable(t, local, desc, func(tableName string) {
//			seeder := dynamock.NewSeeder(local.Client, tableName)
//			_ = seeder.SeedBatch(ctx, dynamock.Values(orders)...)
//		})
//	})
//
// Raw items in wire form can be seeded from a JSON array with [Seeder.SeedFromJSON].
package dynamock
