// Package ddbmock provides testing utilities for the dynoitem library.
//
// This package includes:
//   - Expectation-based mock DynamoDB client for unit testing
//   - Local DynamoDB integration utilities
//   - Test data seeding helpers
//
// # Mock Client
//
// The MockClient provides an expectation-based mock implementation where you
// set expectations for specific operations:
//
//	mock := ddbmock.NewMockClient(t)
//
//	// Set expectation for PutItem
//	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
//		// Verify the operation parameters
//		return &dynamodb.PutItemOutput{}, nil
//	}
//
//	// Use mock in your tests
//	table := dynoitem.NewTable("test-table")
//	err := table.Put(ctx, mock, user)
//
// # Local DynamoDB
//
// For integration testing, the package provides utilities to work with local
// DynamoDB instances. Tables can be provisioned directly from a record
// type's key projection:
//
//	local := ddbmock.NewLocalDynamoDB(8000)
//	if local.IsAvailable(ctx) {
//		users, _ := dynoitem.NewSchema[User]()
//		keys, _ := users.KeyProjection()
//		err := local.CreateTableFor(ctx, "test-users", keys)
//		// ... run tests
//		err = local.DeleteTable(ctx, "test-users")
//	}
//
// # Test Data Seeding
//
// Fixture data seeds from Go values or from wire format JSON documents:
//
//	seeder := ddbmock.NewSeeder(client, "test-users")
//	err := seeder.SeedValues(ctx, user1, user2)
//
//	f, _ := os.Open("testdata/users.json")
//	count, err := seeder.SeedFromJSON(ctx, f)
package ddbmock
