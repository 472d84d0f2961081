package dynamock

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/nisimpson/dynacodec"
)

func TestNewTableManager(t *testing.T) {
	local, err := NewLocalDynamoDB(context.Background(), DefaultLocalPort)
	if err != nil {
		t.Fatalf("failed to create local client: %v", err)
	}
	tm := NewTableManager(local)

	if tm.local != local {
		t.Error("TableManager local instance not set correctly")
	}
	if len(tm.TableNames()) != 0 {
		t.Error("TableManager should start with empty table list")
	}
}

func TestTableManager_TableNames(t *testing.T) {
	tm := NewTableManager(nil)
	tm.tables = append(tm.tables, "table1", "table2")

	names := tm.TableNames()
	if len(names) != 2 || names[0] != "table1" || names[1] != "table2" {
		t.Errorf("expected [table1 table2], got %v", names)
	}

	names[0] = "modified"
	if tm.tables[0] != "table1" {
		t.Error("TableNames should return a copy")
	}
}

func TestNewTestTable(t *testing.T) {
	a := NewTestTable("widgets")
	b := NewTestTable("widgets")
	if !strings.HasPrefix(a, "widgets-") {
		t.Errorf("expected widgets- prefix, got %s", a)
	}
	if a == b {
		t.Errorf("expected unique table names, got %s twice", a)
	}
}

func TestTableManager_Integration(t *testing.T) {
	WithLocalDynamoDB(t, DefaultLocalPort, func(local *LocalDynamoDB) {
		ctx := context.Background()
		tm := NewTableManager(local)
		desc := describe[Widget](t)

		name := NewTestTable("widgets")
		if err := tm.CreateTable(ctx, desc, name); err != nil {
			t.Fatalf("failed to create table: %v", err)
		}
		if names := tm.TableNames(); len(names) != 1 || names[0] != name {
			t.Errorf("expected tracked table %s, got %v", name, names)
		}

		tables, err := local.ListTables(ctx)
		if err != nil {
			t.Fatalf("failed to list tables: %v", err)
		}
		found := false
		for _, table := range tables {
			found = found || table == name
		}
		if !found {
			t.Errorf("table %s not listed in %v", name, tables)
		}

		if err := tm.Cleanup(ctx); err != nil {
			t.Fatalf("failed to clean up: %v", err)
		}
		if len(tm.TableNames()) != 0 {
			t.Error("expected no tracked tables after cleanup")
		}
	})
}

func TestWithIsolatedTable(t *testing.T) {
	WithLocalDynamoDB(t, DefaultLocalPort, func(local *LocalDynamoDB) {
		ctx := context.Background()
		var created string

		WithIsolatedTable(t, local, describe[Widget](t), func(tableName string) {
			created = tableName
			seeder := NewSeeder(local.Client, tableName)
			widgets := NewFixture(withKind("widget")).With(func(w *Widget) { w.Tags = []string{"a"} })
			if err := seeder.SeedBatch(ctx, widgets.MustBuild(), widgets.MustBuild()); err != nil {
				t.Fatalf("failed to seed widgets: %v", err)
			}

			out, err := local.Client.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String(tableName)})
			if err != nil {
				t.Fatalf("failed to scan table: %v", err)
			}
			var got []Widget
			if err := dynacodec.UnmarshalList(out.Items, &got); err != nil {
				t.Fatalf("failed to unmarshal widgets: %v", err)
			}
			if len(got) != 2 {
				t.Errorf("expected 2 widgets, got %d", len(got))
			}
		})

		if _, err := local.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(created)}); err == nil {
			t.Errorf("expected table %s to be deleted", created)
		}
	})
}
