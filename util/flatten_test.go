package util

import (
	"iter"
	"reflect"
	"slices"
	"testing"
)

func seqOf(vals ...any) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range vals {
			if !yield(v) {
				return
			}
		}
	}
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name  string
		items []any
		want  []any
	}{
		{"scalars", []any{"k", 1}, []any{"k", 1}},
		{"nested slice", []any{"k", []any{1, []any{2, 3}}}, []any{"k", 1, 2, 3}},
		{"typed slice", []any{[]int{1, 2}, "x"}, []any{1, 2, "x"}},
		{"array", []any{[2]string{"a", "b"}}, []any{"a", "b"}},
		{"bytes are leaves", []any{[]byte("ab"), "c"}, []any{[]byte("ab"), "c"}},
		{"string is leaf", []any{"abc"}, []any{"abc"}},
		{"map is leaf", []any{map[string]int{"a": 1}}, []any{map[string]int{"a": 1}}},
		{"lazy sequence", []any{"k", seqOf(1, seqOf(2))}, []any{"k", 1, 2}},
		{"empty", nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := slices.Collect(Flatten(tc.items...))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Flatten(%v) = %v, want %v", tc.items, got, tc.want)
			}
		})
	}
}

func TestFlatten_Restartable(t *testing.T) {
	seq := Flatten("a", []any{1, 2})
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected same result on second walk, got %v then %v", first, second)
	}
}

func TestFlatten_EarlyStop(t *testing.T) {
	n := 0
	for range Flatten([]any{1, 2, 3}, 4) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("expected to stop after 2 items, got %d", n)
	}
}

func TestIsSequence(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"string", "abc", false},
		{"bytes", []byte("abc"), false},
		{"int", 3, false},
		{"map", map[string]any{}, false},
		{"any slice", []any{1}, true},
		{"string slice", []string{"a"}, true},
		{"array", [1]int{1}, true},
		{"lazy", seqOf(1), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSequence(tc.v); got != tc.want {
				t.Errorf("IsSequence(%v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestMaterialize(t *testing.T) {
	got := Materialize(seqOf(1, seqOf("a", "b")))
	want := []any{1, []any{"a", "b"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Materialize = %v, want %v", got, want)
	}

	nested := Materialize([]any{"a", seqOf("b", seqOf("c"))})
	if want := []any{"a", []any{"b", []any{"c"}}}; !reflect.DeepEqual(nested, want) {
		t.Errorf("Materialize nested = %#v, want %#v", nested, want)
	}
	typed := Materialize([]iter.Seq[any]{seqOf(1), seqOf()})
	if want := []any{[]any{1}, []any{}}; !reflect.DeepEqual(typed, want) {
		t.Errorf("Materialize typed = %#v, want %#v", typed, want)
	}
	ints := []int{1, 2}
	if got := Materialize(ints); !reflect.DeepEqual(got, ints) {
		t.Errorf("expected []int unchanged, got %#v", got)
	}
	if got := Materialize([]byte("raw")); !reflect.DeepEqual(got, []byte("raw")) {
		t.Errorf("expected []byte unchanged, got %#v", got)
	}

	if got := Materialize("plain"); got != "plain" {
		t.Errorf("expected non-sequence unchanged, got %v", got)
	}
	if got := Materialize(seqOf()); !reflect.DeepEqual(got, []any{}) {
		t.Errorf("expected empty slice, got %#v", got)
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]string{"b", "a", "b", "c", "a"})
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unique = %v, want %v", got, want)
	}
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"first non-empty", []string{"", "b", "c"}, "b"},
		{"all empty", []string{"", ""}, ""},
		{"first wins", []string{"a", "b"}, "a"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Coalesce(tc.values...); got != tc.want {
				t.Errorf("Coalesce(%v) = %q, want %q", tc.values, got, tc.want)
			}
		})
	}
}
