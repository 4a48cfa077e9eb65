package docmerge

import (
	"context"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
)

func TestEvaluateVariable(t *testing.T) {
	data := TemplateData{
		"name": "John",
		"age":  30,
		"customer": map[string]interface{}{
			"name": "Jane",
			"address": map[string]interface{}{
				"city": "Berlin",
			},
		},
		"items":  []interface{}{"first", "second", "third"},
		"prices": map[string]float64{"net": 9.5},
		"empty":  nil,
	}

	tests := []struct {
		name      string
		expr      string
		want      interface{}
		wantFound bool
		wantErr   bool
	}{
		{name: "simple variable", expr: "name", want: "John", wantFound: true},
		{name: "integer", expr: "age", want: 30, wantFound: true},
		{name: "nested field", expr: "customer.address.city", want: "Berlin", wantFound: true},
		{name: "array index", expr: "items[1]", want: "second", wantFound: true},
		{name: "negative index", expr: "items[-1]", want: "third", wantFound: true},
		{name: "quoted key", expr: `customer["name"]`, want: "Jane", wantFound: true},
		{name: "typed map", expr: "prices['net']", want: 9.5, wantFound: true},
		{name: "explicit nil", expr: "empty", want: nil, wantFound: true},
		{name: "missing variable", expr: "missing", wantFound: false},
		{name: "missing nested field", expr: "customer.phone", wantFound: false},
		{name: "index out of range", expr: "items[5]", wantFound: false},
		{name: "field on string", expr: "name.first", wantFound: false},
		{name: "whitespace trimmed", expr: "  name ", want: "John", wantFound: true},
		{name: "leading bracket", expr: "[0]", wantErr: true},
		{name: "empty dot", expr: "customer..name", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := EvaluateVariable(tt.expr, data, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EvaluateVariable() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if found != tt.wantFound {
				t.Fatalf("EvaluateVariable() found = %v, want %v", found, tt.wantFound)
			}
			if found && got != tt.want {
				t.Errorf("EvaluateVariable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateVariableWithScope(t *testing.T) {
	data := TemplateData{"item": "global", "other": "data"}
	scope := &Scope{bindings: []Binding{
		{Name: "item", Value: "outer"},
		{Name: "item", Value: map[string]interface{}{"name": "inner"}},
	}}

	got, found, err := EvaluateVariable("item.name", data, scope)
	if err != nil || !found || got != "inner" {
		t.Errorf("item.name = %v, %v, %v; want inner", got, found, err)
	}
	got, found, err = EvaluateVariable("other", data, scope)
	if err != nil || !found || got != "data" {
		t.Errorf("other = %v, %v, %v; want data", got, found, err)
	}
}

func TestEvaluateStructFields(t *testing.T) {
	faker := gofakeit.New(42)
	person := faker.Person()
	data := TemplateData{"person": person}

	tests := []struct {
		expr string
		want string
	}{
		{"person.FirstName", person.FirstName},
		{"person.lastname", person.LastName},
		{"person.Address.City", person.Address.City},
		{"person.Contact.Email", person.Contact.Email},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, found, err := EvaluateVariable(tt.expr, data, nil)
			if err != nil || !found {
				t.Fatalf("EvaluateVariable() = %v, %v", found, err)
			}
			if got != tt.want {
				t.Errorf("EvaluateVariable() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, found, _ := EvaluateVariable("person.unexported", data, nil); found {
		t.Error("unknown struct field reported as found")
	}
}

func TestDataResolver(t *testing.T) {
	r := NewDataResolver(TemplateData{"a": map[string]interface{}{"b": 1}})

	v, err := r.Resolve(context.Background(), Query{Expr: "a.b"})
	if err != nil || v != 1 {
		t.Errorf("Resolve(a.b) = %v, %v", v, err)
	}

	if _, err := r.Resolve(context.Background(), Query{Expr: "a.c"}); !errors.Is(err, ErrAbsent) {
		t.Errorf("Resolve(a.c) error = %v, want ErrAbsent", err)
	}

	if _, err := r.Resolve(context.Background(), Query{Expr: "a..b"}); !IsResolutionError(err) {
		t.Errorf("Resolve(a..b) error = %v, want ResolutionError", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Resolve(ctx, Query{Expr: "a.b"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() on canceled context error = %v", err)
	}
}

func TestToSlice(t *testing.T) {
	tests := []struct {
		name    string
		in      interface{}
		wantLen int
		wantOK  bool
	}{
		{"interface slice", []interface{}{1, "a"}, 2, true},
		{"string slice", []string{"a", "b", "c"}, 3, true},
		{"array", [2]int{1, 2}, 2, true},
		{"pointer to slice", &[]int{1}, 1, true},
		{"empty slice", []int{}, 0, true},
		{"nil", nil, 0, false},
		{"string", "abc", 0, false},
		{"map", map[string]int{"a": 1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toSlice(tt.in)
			if ok != tt.wantOK || len(got) != tt.wantLen {
				t.Errorf("toSlice() = %d items, %v; want %d, %v", len(got), ok, tt.wantLen, tt.wantOK)
			}
		})
	}
}

func TestIsTruthy(t *testing.T) {
	var nilMap map[string]int
	tests := []struct {
		in   interface{}
		want bool
	}{
		{nil, false},
		{true, true},
		{false, false},
		{0, false},
		{7, true},
		{uint8(0), false},
		{0.0, false},
		{0.5, true},
		{"", false},
		{"x", true},
		{[]int{}, false},
		{[]int{1}, true},
		{nilMap, false},
		{map[string]int{"a": 1}, true},
		{struct{}{}, true},
	}

	for _, tt := range tests {
		if got := isTruthy(tt.in); got != tt.want {
			t.Errorf("isTruthy(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type stringerValue struct{}

func (stringerValue) String() string { return "stringer" }

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{42, "42"},
		{int64(-3), "-3"},
		{uint(7), "7"},
		{3.14, "3.14"},
		{float32(2.5), "2.5"},
		{100.0, "100"},
		{true, "true"},
		{stringerValue{}, "stringer"},
		{[]int{1, 2}, "[1 2]"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
