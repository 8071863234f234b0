package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rasaeats/api/internal/cache"
	"github.com/rasaeats/api/internal/enum"
	"github.com/rasaeats/api/internal/model"
	"github.com/rasaeats/api/internal/sequence"
	"github.com/rasaeats/api/internal/store"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingPrice    = errors.New("price must not be negative")
	ErrFoodNotFound    = errors.New("menu item not found")
	ErrMissingCategory = errors.New("category is required")
)

// CatalogService manages the menu, sauces and add-ons. Writes go to the
// store and invalidate the mirror; single-document reads go through the
// read-through cache when one is configured.
type CatalogService struct {
	store store.Store
	seq   *sequence.Sequencer
	cache *cache.Cache // optional
}

// NewCatalogService creates a CatalogService. cache may be nil.
func NewCatalogService(s store.Store, seq *sequence.Sequencer, c *cache.Cache) *CatalogService {
	return &CatalogService{store: s, seq: seq, cache: c}
}

// CreateFood adds a menu item under a minted M#### ID.
func (s *CatalogService) CreateFood(ctx context.Context, name, category string, price decimal.Decimal, photoURL string) (model.Food, error) {
	if name == "" {
		return model.Food{}, ErrMissingName
	}
	if category == "" {
		return model.Food{}, ErrMissingCategory
	}
	if price.IsNegative() {
		return model.Food{}, ErrMissingPrice
	}

	var food model.Food
	err := s.seq.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		id, err := sequence.NextInTx(ctx, tx, enum.SeqMenu, enum.PrefixMenu, enum.IDWidth)
		if err != nil {
			return err
		}
		food = model.Food{
			ID:        id,
			Name:      name,
			Category:  category,
			Price:     price,
			Available: true,
			PhotoURL:  photoURL,
		}
		if err := tx.Set(ctx, enum.ColMenu, id, food); err != nil {
			return err
		}
		return s.ensureCategory(ctx, tx, category)
	})
	if err != nil {
		return model.Food{}, fmt.Errorf("create menu item: %w", err)
	}
	return food, nil
}

// CreateSauce adds a sauce under a minted SM#### ID.
func (s *CatalogService) CreateSauce(ctx context.Context, name string, price decimal.Decimal) (model.CatalogOption, error) {
	return s.createOption(ctx, enum.ColSauces, enum.SeqSauces, enum.PrefixSauce, name, price)
}

// CreateAddOn adds an add-on under a minted AM#### ID.
func (s *CatalogService) CreateAddOn(ctx context.Context, name string, price decimal.Decimal) (model.CatalogOption, error) {
	return s.createOption(ctx, enum.ColAddOns, enum.SeqAddOns, enum.PrefixAddOn, name, price)
}

func (s *CatalogService) createOption(ctx context.Context, collection, seqName, prefix, name string, price decimal.Decimal) (model.CatalogOption, error) {
	if name == "" {
		return model.CatalogOption{}, ErrMissingName
	}
	if price.IsNegative() {
		return model.CatalogOption{}, ErrMissingPrice
	}

	var opt model.CatalogOption
	err := s.seq.Do(ctx, func(ctx context.Context, tx store.Tx) error {
		id, err := sequence.NextInTx(ctx, tx, seqName, prefix, enum.IDWidth)
		if err != nil {
			return err
		}
		opt = model.CatalogOption{ID: id, Name: name, Price: price, Available: true}
		return tx.Set(ctx, collection, id, opt)
	})
	if err != nil {
		return model.CatalogOption{}, fmt.Errorf("create option: %w", err)
	}
	return opt, nil
}

// GetFood resolves one menu item, through the mirror when available.
func (s *CatalogService) GetFood(ctx context.Context, id string) (model.Food, error) {
	var food model.Food
	err := s.read(ctx, enum.ColMenu, id, &food)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Food{}, fmt.Errorf("%w: %s", ErrFoodNotFound, id)
		}
		return model.Food{}, fmt.Errorf("get menu item: %w", err)
	}
	return food, nil
}

// SetFoodAvailability toggles a menu item on or off.
func (s *CatalogService) SetFoodAvailability(ctx context.Context, id string, available bool) error {
	err := s.store.Update(ctx, enum.ColMenu, id, map[string]any{"available": available})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrFoodNotFound, id)
		}
		return fmt.Errorf("set availability: %w", err)
	}
	s.invalidate(ctx, enum.ColMenu, id)
	return nil
}

// ListMenu returns all menu items, M-number order.
func (s *CatalogService) ListMenu(ctx context.Context) ([]model.Food, error) {
	var foods []model.Food
	if err := s.store.Query(ctx, enum.ColMenu, nil, &foods); err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	sort.Slice(foods, func(i, j int) bool { return sequence.IDLess(foods[i].ID, foods[j].ID) })
	return foods, nil
}

// ListSauces returns all sauces.
func (s *CatalogService) ListSauces(ctx context.Context) ([]model.CatalogOption, error) {
	return s.listOptions(ctx, enum.ColSauces)
}

// ListAddOns returns all add-ons.
func (s *CatalogService) ListAddOns(ctx context.Context) ([]model.CatalogOption, error) {
	return s.listOptions(ctx, enum.ColAddOns)
}

// ListCategories returns all menu sections.
func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := s.store.Query(ctx, enum.ColCategories, nil, &cats); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

func (s *CatalogService) listOptions(ctx context.Context, collection string) ([]model.CatalogOption, error) {
	var opts []model.CatalogOption
	if err := s.store.Query(ctx, collection, nil, &opts); err != nil {
		return nil, fmt.Errorf("list %s: %w", strings.ToLower(collection), err)
	}
	sort.Slice(opts, func(i, j int) bool { return sequence.IDLess(opts[i].ID, opts[j].ID) })
	return opts, nil
}

func (s *CatalogService) ensureCategory(ctx context.Context, tx store.Tx, name string) error {
	id := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	var existing model.Category
	err := tx.Get(ctx, enum.ColCategories, id, &existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return tx.Set(ctx, enum.ColCategories, id, model.Category{ID: id, Name: name})
}

// RefreshCache rewarms the mirrored collections. No-op when no cache is
// configured.
func (s *CatalogService) RefreshCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Refresh(ctx)
}

func (s *CatalogService) read(ctx context.Context, collection, id string, v any) error {
	if s.cache != nil {
		return s.cache.Get(ctx, collection, id, v)
	}
	return s.store.Get(ctx, collection, id, v)
}

func (s *CatalogService) invalidate(ctx context.Context, collection, id string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, collection, id)
	}
}
