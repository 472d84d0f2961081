package dynamock

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nisimpson/dynacodec"
)

// TableManager creates tables on a local DynamoDB instance and tracks them for cleanup.
type TableManager struct {
	local  *LocalDynamoDB
	tables []string // track created tables for cleanup
}

// NewTableManager creates a new table manager for local.
func NewTableManager(local *LocalDynamoDB) *TableManager {
	return &TableManager{local: local}
}

// CreateTable creates a table keyed like desc and tracks it for cleanup.
func (tm *TableManager) CreateTable(ctx context.Context, desc *dynacodec.ClassDescriptor, tableName string) error {
	if err := tm.local.CreateTableFor(ctx, desc, tableName); err != nil {
		return err
	}
	tm.tables = append(tm.tables, tableName)
	return nil
}

// Cleanup deletes all tables created by this manager.
func (tm *TableManager) Cleanup(ctx context.Context) error {
	for _, tableName := range tm.tables {
		if err := tm.local.DeleteTable(ctx, tableName); err != nil {
			return fmt.Errorf("failed to delete table %s: %w", tableName, err)
		}
	}
	tm.tables = tm.tables[:0]
	return nil
}

// TableNames returns the names of all tables managed by this manager.
func (tm *TableManager) TableNames() []string {
	names := make([]string, len(tm.tables))
	copy(names, tm.tables)
	return names
}

// NewTestTable generates a unique table name for testing.
func NewTestTable(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// WithLocalDynamoDB runs fn against a local DynamoDB instance on port. The test is
// skipped in short mode or when DynamoDB Local is not running.
func WithLocalDynamoDB(t *testing.T, port int, fn func(local *LocalDynamoDB)) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	local, err := NewLocalDynamoDB(ctx, port)
	if err != nil {
		t.Fatalf("Failed to create local client: %v", err)
	}
	if !local.IsAvailable(ctx) {
		t.Skipf("DynamoDB Local not available on port %d", port)
	}
	fn(local)
}

// WithIsolatedTable runs fn with a uniquely named table keyed like desc. The table
// is deleted when fn returns.
func WithIsolatedTable(t *testing.T, local *LocalDynamoDB, desc *dynacodec.ClassDescriptor, fn func(tableName string)) {
	ctx := context.Background()
	tableName := NewTestTable("test-" + strings.ReplaceAll(t.Name(), "/", "-"))
	tm := NewTableManager(local)

	defer func() {
		if err := tm.Cleanup(ctx); err != nil {
			t.Errorf("Failed to cleanup table %s: %v", tableName, err)
		}
	}()

	if err := tm.CreateTable(ctx, desc, tableName); err != nil {
		t.Fatalf("Failed to create test table %s: %v", tableName, err)
	}
	fn(tableName)
}
