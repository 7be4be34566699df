package models

import (
	"reflect"
	"testing"
)

func TestNewSingleSelectContent_Invalid(t *testing.T) {
	tests := []struct {
		name         string
		options      []string
		correctIndex int
	}{
		{"one option", []string{"only"}, 0},
		{"negative index", []string{"a", "b"}, -1},
		{"index out of bounds", []string{"a", "b"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSingleSelectContent(tt.options, tt.correctIndex); err == nil {
				t.Error("expected construction error")
			}
		})
	}
}

func TestNewMultiSelectContent_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		options []string
		correct []int
	}{
		{"one option", []string{"only"}, []int{0}},
		{"no correct indices", []string{"a", "b"}, nil},
		{"index out of bounds", []string{"a", "b"}, []int{0, 2}},
		{"duplicate index", []string{"a", "b", "c"}, []int{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMultiSelectContent(tt.options, tt.correct); err == nil {
				t.Error("expected construction error")
			}
		})
	}
}

func TestQuestion_OptionList(t *testing.T) {
	content, err := NewMultiSelectContent([]string{"red", "green", "blue"}, []int{0, 2})
	if err != nil {
		t.Fatalf("NewMultiSelectContent failed: %v", err)
	}

	q := &Question{Kind: MultiSelect, Content: content}
	options, err := q.OptionList()
	if err != nil {
		t.Fatalf("OptionList failed: %v", err)
	}
	if !reflect.DeepEqual(options, []string{"red", "green", "blue"}) {
		t.Errorf("got %v", options)
	}

	open := &Question{Kind: Open}
	options, err = open.OptionList()
	if err != nil || options != nil {
		t.Errorf("open question should have no options, got %v, %v", options, err)
	}
}

func TestQuestion_ContentKindMismatch(t *testing.T) {
	content, err := NewSingleSelectContent([]string{"a", "b"}, 1)
	if err != nil {
		t.Fatalf("NewSingleSelectContent failed: %v", err)
	}

	q := &Question{Kind: SingleSelect, Content: content}
	if _, err := q.MultiSelectContent(); err == nil {
		t.Error("decoding single-select content as multi-select should fail")
	}
}
