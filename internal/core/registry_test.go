package core

import (
	"reflect"
	"testing"
)

func TestNewRegistryDefaults(t *testing.T) {
	r := NewRegistry(nil)
	if got := r.All(); !reflect.DeepEqual(got, DefaultCategories) {
		t.Fatalf("expected defaults, got %v", got)
	}
}

func TestNewRegistryNormalizes(t *testing.T) {
	r := NewRegistry([]string{" Ropa ", "Ropa", "", "Joyas"})
	want := []string{"Ropa", "Joyas"}
	if got := r.All(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !r.IsValid("Ropa") || r.IsValid("Maquillaje") {
		t.Fatalf("membership does not match configured set")
	}
}

func TestRegistryFilter(t *testing.T) {
	r := NewRegistry(nil)
	cases := []struct {
		in  []string
		out []string
	}{
		// unknown tags are dropped silently, valid ones kept
		{[]string{"Maquillaje", "Perfumes"}, []string{"Maquillaje"}},
		// request order preserved, duplicates removed
		{[]string{"Zapatos", "Maquillaje", "Zapatos"}, []string{"Zapatos", "Maquillaje"}},
		{[]string{"Perfumes", "Bolsos"}, nil},
		{nil, nil},
	}
	for i, tc := range cases {
		if got := r.Filter(tc.in); !reflect.DeepEqual(got, tc.out) {
			t.Fatalf("case %d expected %v, got %v", i, tc.out, got)
		}
	}
}
