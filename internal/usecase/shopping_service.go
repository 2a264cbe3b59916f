package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartshop/backend/internal/domain"
)

// Run event types
const (
	RunEventStarted   = "started"
	RunEventProgress  = "progress"
	RunEventSucceeded = "succeeded"
	RunEventFailed    = "failed"
)

// RunEvent describes a change in the optimization run lifecycle
type RunEvent struct {
	Type      string `json:"type"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

// Optimizer prices a list of items near a location
type Optimizer interface {
	Optimize(ctx context.Context, items []domain.GroceryItem, loc domain.Location, onProgress func(Progress)) (*domain.OptimizationResult, error)
}

// ShoppingServiceConfig holds optional hooks for the shopping service
type ShoppingServiceConfig struct {
	OnRunEvent func(RunEvent)
	Now        func() time.Time
	NewID      func() string
}

// ShoppingService owns the live grocery list, saved lists and optimization runs
type ShoppingService struct {
	mu    sync.Mutex
	state AppState

	store     domain.SlotStore
	advisor   domain.PriceAdvisor
	optimizer Optimizer

	onRunEvent func(RunEvent)
	now        func() time.Time
	newID      func() string
}

// NewShoppingService creates the service and restores persisted slots.
// Absent or corrupt slots start empty.
func NewShoppingService(
	ctx context.Context,
	store domain.SlotStore,
	advisor domain.PriceAdvisor,
	optimizer Optimizer,
	config ShoppingServiceConfig,
) *ShoppingService {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}

	s := &ShoppingService{
		store:      store,
		advisor:    advisor,
		optimizer:  optimizer,
		onRunEvent: config.OnRunEvent,
		now:        config.Now,
		newID:      config.NewID,
	}
	s.state = AppState{
		Items:      loadSlot[domain.GroceryItem](ctx, store, domain.SlotGroceryList),
		SavedLists: loadSlot[domain.SavedList](ctx, store, domain.SlotSavedLists),
	}

	zap.L().Info("[Shopping] state restored",
		zap.Int("items", len(s.state.Items)),
		zap.Int("savedLists", len(s.state.SavedLists)),
	)
	return s
}

func loadSlot[T any](ctx context.Context, store domain.SlotStore, key string) []T {
	out := []T{}
	if store == nil {
		return out
	}

	data, err := store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrSlotNotFound) {
			zap.L().Warn("[Shopping] slot unreadable, starting empty", zap.String("slot", key), zap.Error(err))
		}
		return out
	}

	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		zap.L().Warn("[Shopping] slot corrupt, starting empty", zap.String("slot", key), zap.Error(err))
		return []T{}
	}
	return out
}

// State returns a snapshot of the application state
func (s *ShoppingService) State() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Items returns the live grocery list
func (s *ShoppingService) Items() []domain.GroceryItem {
	return s.State().Items
}

// SavedLists returns saved lists, newest first
func (s *ShoppingService) SavedLists() []domain.SavedList {
	return s.State().SavedLists
}

// Result returns the latest optimization result
func (s *ShoppingService) Result() (*domain.OptimizationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Result == nil {
		return nil, domain.ErrNoResult
	}
	return s.state.Result, nil
}

// AddItem appends an item to the live list
func (s *ShoppingService) AddItem(ctx context.Context, name string) (domain.GroceryItem, error) {
	item := domain.GroceryItem{ID: s.newID(), Name: strings.TrimSpace(name)}
	if err := s.dispatch(ctx, AddItem{Item: item}); err != nil {
		return domain.GroceryItem{}, err
	}
	return item, nil
}

// RemoveItem deletes an item from the live list
func (s *ShoppingService) RemoveItem(ctx context.Context, id string) error {
	return s.dispatch(ctx, RemoveItem{ID: id})
}

// ClearItems empties the live list
func (s *ShoppingService) ClearItems(ctx context.Context) error {
	return s.dispatch(ctx, ClearItems{})
}

// LoadBasicBasket replaces the live list with the staples preset
func (s *ShoppingService) LoadBasicBasket(ctx context.Context) ([]domain.GroceryItem, error) {
	items := s.newItems(domain.BasicBasket)
	if err := s.dispatch(ctx, LoadBasicBasket{Items: items}); err != nil {
		return nil, err
	}
	return items, nil
}

// ImportReceipt parses a base64 PDF receipt and appends its products to the live list
func (s *ShoppingService) ImportReceipt(ctx context.Context, base64PDF string) ([]domain.GroceryItem, error) {
	names, err := s.advisor.ParseReceipt(ctx, base64PDF)
	if err != nil {
		return nil, err
	}

	items := s.newItems(names)
	if err := s.dispatch(ctx, AddItems{Items: items}); err != nil {
		return nil, err
	}

	zap.L().Info("[Shopping] receipt imported", zap.Int("items", len(items)))
	return items, nil
}

// SuggestListName asks the advisor for a name and icon for the live list
func (s *ShoppingService) SuggestListName(ctx context.Context) (domain.ListSuggestion, error) {
	items := s.Items()
	if len(items) == 0 {
		return domain.ListSuggestion{}, domain.ErrEmptyList
	}
	return s.advisor.SuggestListName(ctx, domain.ItemNames(items))
}

// SaveList snapshots the live list under a name
func (s *ShoppingService) SaveList(ctx context.Context, name string, icon string) (domain.SavedList, error) {
	list := domain.SavedList{
		ID:        s.newID(),
		Name:      strings.TrimSpace(name),
		IconName:  domain.ParseIcon(icon),
		Items:     s.Items(),
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.dispatch(ctx, SaveList{List: list}); err != nil {
		return domain.SavedList{}, err
	}
	return list, nil
}

// LoadSavedList replaces the live list with a saved one
func (s *ShoppingService) LoadSavedList(ctx context.Context, id string) ([]domain.GroceryItem, error) {
	if err := s.dispatch(ctx, LoadSavedList{ID: id}); err != nil {
		return nil, err
	}
	return s.Items(), nil
}

// DeleteSavedList removes a saved list
func (s *ShoppingService) DeleteSavedList(ctx context.Context, id string) error {
	return s.dispatch(ctx, DeleteSavedList{ID: id})
}

// Optimize runs a price comparison of the live list near loc. Only one run may be active.
func (s *ShoppingService) Optimize(ctx context.Context, loc domain.Location) (*domain.OptimizationResult, error) {
	if !loc.Valid() {
		return nil, domain.ErrLocationUnavailable
	}

	s.mu.Lock()
	items := s.state.clone().Items
	if len(items) == 0 {
		s.mu.Unlock()
		return nil, domain.ErrEmptyList
	}
	next, err := Reduce(s.state, RunStarted{Total: len(items)})
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.state = next
	s.mu.Unlock()

	s.emit(RunEvent{Type: RunEventStarted, Total: len(items)})

	result, err := s.optimizer.Optimize(ctx, items, loc, func(p Progress) {
		s.mu.Lock()
		s.state, _ = Reduce(s.state, RunProgressed{Progress: p})
		s.mu.Unlock()
		s.emit(RunEvent{Type: RunEventProgress, Completed: p.Completed, Total: p.Total})
	})

	s.mu.Lock()
	if err != nil {
		s.state, _ = Reduce(s.state, RunFailed{Err: err})
	} else {
		s.state, _ = Reduce(s.state, RunSucceeded{Result: result})
	}
	progress := s.state.Progress
	discarded := err == nil && s.state.Result == nil
	s.mu.Unlock()

	if discarded {
		zap.L().Info("[Shopping] list changed during run, result not stored")
	}

	if err != nil {
		zap.L().Warn("[Shopping] optimization failed", zap.Error(err))
		s.emit(RunEvent{Type: RunEventFailed, Completed: progress.Completed, Total: progress.Total, Error: err.Error()})
		return nil, err
	}

	s.emit(RunEvent{Type: RunEventSucceeded, Completed: progress.Completed, Total: progress.Total})
	return result, nil
}

func (s *ShoppingService) emit(e RunEvent) {
	if s.onRunEvent != nil {
		s.onRunEvent(e)
	}
}

func (s *ShoppingService) newItems(names []string) []domain.GroceryItem {
	items := make([]domain.GroceryItem, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			items = append(items, domain.GroceryItem{ID: s.newID(), Name: name})
		}
	}
	return items
}

// dispatch applies a list action and persists the slots it touched
func (s *ShoppingService) dispatch(ctx context.Context, a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	next, err := Reduce(prev, a)
	if err != nil {
		return err
	}
	s.state = next

	ctx = context.WithoutCancel(ctx)
	switch a.(type) {
	case SaveList, DeleteSavedList:
		s.persist(ctx, domain.SlotSavedLists, next.SavedLists)
	default:
		s.persist(ctx, domain.SlotGroceryList, next.Items)
	}
	return nil
}

// persist overwrites a slot. Failures are logged; the in-memory state stays authoritative.
func (s *ShoppingService) persist(ctx context.Context, key string, value any) {
	if s.store == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		zap.L().Error("[Shopping] slot encode failed", zap.String("slot", key), zap.Error(err))
		return
	}
	if err := s.store.Save(ctx, key, data); err != nil {
		zap.L().Error("[Shopping] slot save failed", zap.String("slot", key), zap.Error(fmt.Errorf("save %s: %w", key, err)))
	}
}
