package domain

import "testing"

func TestRowIsBlank(t *testing.T) {
	if !(Row{Index: 2}).IsBlank() {
		t.Fatal("expected row without fields to be blank")
	}
	if (Row{Index: 2, Reference: "X1"}).IsBlank() {
		t.Fatal("expected row with a reference to be non-blank")
	}
}

func TestModeResultColumn(t *testing.T) {
	if got := ModeCategory.ResultColumn(); got != "categoria" {
		t.Fatalf("category column = %q", got)
	}
	if got := ModeBodywork.ResultColumn(); got != "es_carroceria" {
		t.Fatalf("bodywork column = %q", got)
	}
}
