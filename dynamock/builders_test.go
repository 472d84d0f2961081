package dynamock

import (
	"testing"

	"github.com/nisimpson/dynacodec"
)

func withKind(kind string) FixtureOption[Widget] {
	return func(w *Widget) { w.Kind = kind }
}

func TestFixtureBuilder_Build(t *testing.T) {
	w, err := NewFixture(withKind("widget")).Build()
	if err != nil {
		t.Fatalf("failed to build fixture: %v", err)
	}
	if w.ID == "" {
		t.Error("expected generated ID")
	}
	if w.Kind != "widget" {
		t.Errorf("expected kind widget, got %s", w.Kind)
	}

	item, err := dynacodec.MarshalItem(w)
	if err != nil {
		t.Fatalf("fixture failed to marshal: %v", err)
	}
	var out Widget
	if err := dynacodec.UnmarshalItem(item, &out); err != nil {
		t.Fatalf("fixture failed to unmarshal: %v", err)
	}
	if out.ID != w.ID || out.Name != w.Name || out.Count != w.Count {
		t.Errorf("round trip mismatch: %+v != %+v", out, *w)
	}
}

func TestFixtureBuilder_With(t *testing.T) {
	base := NewFixture(withKind("widget"))
	named := base.With(func(w *Widget) { w.Name = "gear" })

	w := named.MustBuild()
	if w.Kind != "widget" || w.Name != "gear" {
		t.Errorf("expected both options applied, got %+v", *w)
	}

	if b := base.MustBuild(); b.Name == "gear" {
		t.Error("With must not change the base builder")
	}
}

func TestFixtureBuilder_BuildN(t *testing.T) {
	widgets, err := NewFixture(withKind("widget")).BuildN(5)
	if err != nil {
		t.Fatalf("failed to build fixtures: %v", err)
	}
	if len(widgets) != 5 {
		t.Fatalf("expected 5 fixtures, got %d", len(widgets))
	}

	values := Values(widgets)
	if len(values) != 5 {
		t.Fatalf("expected 5 values, got %d", len(values))
	}
	if values[2].(*Widget) != widgets[2] {
		t.Error("Values must keep fixture order")
	}
}
