package theme

import "testing"

func TestSetCurrentSwitchesAndRestores(t *testing.T) {
	t.Cleanup(func() { _ = SetCurrent("") })

	if err := SetCurrent("midnight"); err != nil {
		t.Fatalf("set midnight: %v", err)
	}
	if got := Filter(); got != 0x9F8FEF {
		t.Fatalf("filter color = %#x", got)
	}
	// Unset roles inherit from the core palette.
	if got := Expired(); got != Warning() {
		t.Fatalf("expired color = %#x, want warning %#x", got, Warning())
	}

	if err := SetCurrent("nope"); err == nil {
		t.Fatalf("expected error for unknown theme")
	}

	if err := SetCurrent(""); err != nil {
		t.Fatalf("restore default: %v", err)
	}
	if Prompt() != Default().Prompt {
		t.Fatalf("default not restored")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	if err := Register(&Theme{Name: "midnight"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := Register(&Theme{}); err == nil {
		t.Fatalf("expected nameless theme to fail")
	}
}

func TestNamesIncludesDefault(t *testing.T) {
	names := Names()
	if len(names) < 2 || names[0] != "default" {
		t.Fatalf("unexpected names: %v", names)
	}
}
