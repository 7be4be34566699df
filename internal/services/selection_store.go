package services

import (
	"sort"
	"sync"
)

type selectionKey struct {
	AssignmentID uint
	QuestionID   uint
}

// SelectionStore keeps the in-flight option toggles of multi-select questions
// before the assignee confirms the answer. Toggles are not persisted; a lost
// process simply resets the pending set.
type SelectionStore struct {
	mu         sync.RWMutex
	selections map[selectionKey]map[int]struct{}
}

func NewSelectionStore() *SelectionStore {
	return &SelectionStore{
		selections: make(map[selectionKey]map[int]struct{}),
	}
}

// Toggle flips the given option and returns the resulting selection, sorted.
func (s *SelectionStore) Toggle(assignmentID, questionID uint, optionIndex int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := selectionKey{AssignmentID: assignmentID, QuestionID: questionID}
	set, ok := s.selections[key]
	if !ok {
		set = make(map[int]struct{})
		s.selections[key] = set
	}
	if _, selected := set[optionIndex]; selected {
		delete(set, optionIndex)
	} else {
		set[optionIndex] = struct{}{}
	}
	return sortedIndices(set)
}

// Get returns the current selection for a question, sorted.
func (s *SelectionStore) Get(assignmentID, questionID uint) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedIndices(s.selections[selectionKey{AssignmentID: assignmentID, QuestionID: questionID}])
}

// Clear drops the pending selection for one question.
func (s *SelectionStore) Clear(assignmentID, questionID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selections, selectionKey{AssignmentID: assignmentID, QuestionID: questionID})
}

// ClearAssignment drops every pending selection of an assignment.
func (s *SelectionStore) ClearAssignment(assignmentID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.selections {
		if key.AssignmentID == assignmentID {
			delete(s.selections, key)
		}
	}
}

func sortedIndices(set map[int]struct{}) []int {
	if len(set) == 0 {
		return []int{}
	}
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
