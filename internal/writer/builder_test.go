// internal/writer/builder_test.go
package writer

import (
	"testing"

	cfg "github.com/tamzrod/datastore/internal/config"
	"github.com/tamzrod/datastore/internal/datastore"
)

func TestBuildPlan(t *testing.T) {
	cat := datastore.NewCatalog()
	cat.MustAdd(datastore.Float, "SUPPLY", 0, datastore.FlagNone)
	cat.MustAdd(datastore.Float, "RETURN", 0, datastore.FlagNone)
	cat.MustAdd(datastore.Button, "RESET", 0, datastore.FlagNone)

	plan, err := BuildPlan(cfg.MirrorConfig{
		ID: "temps", Endpoint: "ep1", UnitID: 2, Type: "float", First: "return", Address: 40,
	}, cat)
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}
	if plan.First != 1 || plan.Count != 1 || plan.Area != AreaHoldingRegisters || plan.Address != 40 {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	plan, err = BuildPlan(cfg.MirrorConfig{ID: "reset", Endpoint: "ep1", Type: "button", First: "RESET"}, cat)
	if err != nil {
		t.Fatalf("BuildPlan err=%v", err)
	}
	if plan.Area != AreaCoils {
		t.Fatalf("button mirrors default to coils, got area %d", plan.Area)
	}

	if _, err := BuildPlan(cfg.MirrorConfig{ID: "x", Type: "float", First: "nope"}, cat); err == nil {
		t.Fatalf("expected unknown datapoint error")
	}
	if _, err := BuildPlan(cfg.MirrorConfig{Type: "float", First: "supply"}, cat); err == nil {
		t.Fatalf("expected missing id error")
	}
}

func TestBuild_MissingClientFailsOnWrite(t *testing.T) {
	cat := datastore.NewCatalog()
	cat.MustAdd(datastore.UnsignedInt, "A", 0, datastore.FlagNone)

	mirrors, err := Build([]cfg.MirrorConfig{{ID: "a", Endpoint: "ep9", Type: "uint", First: "a"}}, cat, nil, quiet())
	if err != nil {
		t.Fatalf("Build err=%v", err)
	}
	if len(mirrors) != 1 {
		t.Fatalf("mirrors = %d", len(mirrors))
	}
	if err := mirrors[0].Write([]datastore.Value{1}); err == nil {
		t.Fatalf("expected missing client error")
	}
}
