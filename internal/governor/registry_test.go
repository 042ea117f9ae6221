package governor

import "testing"

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(NewPatternGovernor("zeta", 1.0, DefaultStyleRules())); err != nil {
		t.Fatalf("Register zeta: %v", err)
	}
	if err := r.Register(NewPatternGovernor("alpha", 2.0, nil)); err != nil {
		t.Fatalf("Register alpha: %v", err)
	}

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("List len = %d, want 2", len(list))
	}
	if list[0].Name() != "alpha" || list[1].Name() != "zeta" {
		t.Fatalf("List not sorted by name: %s, %s", list[0].Name(), list[1].Name())
	}

	if g := r.Get("alpha"); g == nil || g.Weight() != 2.0 {
		t.Fatalf("Get(alpha) = %#v", g)
	}
}

func TestRegistryRejectsInvalid(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(nil); err == nil {
		t.Fatal("nil governor accepted")
	}
	if err := r.Register(NewPatternGovernor("", 1.0, nil)); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := r.Register(NewPatternGovernor("g", 0, nil)); err == nil {
		t.Fatal("zero weight accepted")
	}

	if err := r.Register(NewPatternGovernor("dup", 1.0, nil)); err != nil {
		t.Fatalf("Register dup: %v", err)
	}
	if err := r.Register(NewPatternGovernor("dup", 1.0, nil)); err == nil {
		t.Fatal("duplicate name accepted")
	}
}
