package usecase

import (
	"fmt"
	"slices"
	"strings"

	"github.com/smartshop/backend/internal/domain"
)

// AppState is everything a client needs to render the shopping flow
type AppState struct {
	Items      []domain.GroceryItem       `json:"items"`
	SavedLists []domain.SavedList         `json:"savedLists"`
	Result     *domain.OptimizationResult `json:"-"`
	Progress   Progress                   `json:"progress"`
	Running    bool                       `json:"running"`
	LastError  string                     `json:"lastError,omitempty"`

	// Generation counts list changes that invalidate a result.
	// A run only publishes its result if no such change happened while it ran.
	Generation    uint64 `json:"-"`
	RunGeneration uint64 `json:"-"`
}

// Action is a state transition applied by Reduce
type Action interface {
	apply(s AppState) (AppState, error)
}

// Actions
type (
	AddItem         struct{ Item domain.GroceryItem }
	AddItems        struct{ Items []domain.GroceryItem }
	RemoveItem      struct{ ID string }
	LoadBasicBasket struct{ Items []domain.GroceryItem }
	ClearItems      struct{}
	SaveList        struct{ List domain.SavedList }
	LoadSavedList   struct{ ID string }
	DeleteSavedList struct{ ID string }
	RunStarted      struct{ Total int }
	RunProgressed   struct{ Progress Progress }
	RunSucceeded    struct{ Result *domain.OptimizationResult }
	RunFailed       struct{ Err error }
)

// Reduce applies an action to a copy of s. On error s is returned unchanged.
func Reduce(s AppState, a Action) (AppState, error) {
	next, err := a.apply(s.clone())
	if err != nil {
		return s, err
	}
	return next, nil
}

func (s AppState) clone() AppState {
	s.Items = slices.Clone(s.Items)
	s.SavedLists = slices.Clone(s.SavedLists)
	return s
}

func (s *AppState) invalidateResult() {
	s.Result = nil
	s.Generation++
}

func (a AddItem) apply(s AppState) (AppState, error) {
	if strings.TrimSpace(a.Item.Name) == "" {
		return s, fmt.Errorf("%w: item name is required", domain.ErrInvalidRequest)
	}
	s.Items = append(s.Items, a.Item)
	s.invalidateResult()
	return s, nil
}

func (a AddItems) apply(s AppState) (AppState, error) {
	added := 0
	for _, item := range a.Items {
		if strings.TrimSpace(item.Name) == "" {
			continue
		}
		s.Items = append(s.Items, item)
		added++
	}
	if added > 0 {
		s.invalidateResult()
	}
	return s, nil
}

func (a RemoveItem) apply(s AppState) (AppState, error) {
	idx := slices.IndexFunc(s.Items, func(i domain.GroceryItem) bool { return i.ID == a.ID })
	if idx < 0 {
		return s, domain.ErrItemNotFound
	}
	s.Items = slices.Delete(s.Items, idx, idx+1)
	return s, nil
}

func (a LoadBasicBasket) apply(s AppState) (AppState, error) {
	s.Items = slices.Clone(a.Items)
	s.invalidateResult()
	return s, nil
}

func (ClearItems) apply(s AppState) (AppState, error) {
	s.Items = []domain.GroceryItem{}
	s.invalidateResult()
	return s, nil
}

func (a SaveList) apply(s AppState) (AppState, error) {
	if len(a.List.Items) == 0 {
		return s, domain.ErrEmptyList
	}
	if strings.TrimSpace(a.List.Name) == "" {
		return s, fmt.Errorf("%w: list name is required", domain.ErrInvalidRequest)
	}
	s.SavedLists = append([]domain.SavedList{a.List}, s.SavedLists...)
	return s, nil
}

func (a LoadSavedList) apply(s AppState) (AppState, error) {
	idx := slices.IndexFunc(s.SavedLists, func(l domain.SavedList) bool { return l.ID == a.ID })
	if idx < 0 {
		return s, domain.ErrSavedListNotFound
	}
	s.Items = slices.Clone(s.SavedLists[idx].Items)
	s.invalidateResult()
	return s, nil
}

func (a DeleteSavedList) apply(s AppState) (AppState, error) {
	idx := slices.IndexFunc(s.SavedLists, func(l domain.SavedList) bool { return l.ID == a.ID })
	if idx < 0 {
		return s, domain.ErrSavedListNotFound
	}
	s.SavedLists = slices.Delete(s.SavedLists, idx, idx+1)
	return s, nil
}

func (a RunStarted) apply(s AppState) (AppState, error) {
	if s.Running {
		return s, domain.ErrRunInProgress
	}
	s.Running = true
	s.RunGeneration = s.Generation
	s.Result = nil
	s.LastError = ""
	s.Progress = Progress{Completed: 0, Total: a.Total}
	return s, nil
}

func (a RunProgressed) apply(s AppState) (AppState, error) {
	if !s.Running || a.Progress.Completed < s.Progress.Completed {
		return s, nil
	}
	s.Progress = a.Progress
	return s, nil
}

func (a RunSucceeded) apply(s AppState) (AppState, error) {
	s.Running = false
	s.LastError = ""
	if s.RunGeneration != s.Generation {
		// the list changed mid-run; its prices no longer apply
		s.Result = nil
		return s, nil
	}
	s.Result = a.Result
	return s, nil
}

func (a RunFailed) apply(s AppState) (AppState, error) {
	s.Running = false
	s.Result = nil
	if a.Err != nil {
		s.LastError = a.Err.Error()
	}
	return s, nil
}
