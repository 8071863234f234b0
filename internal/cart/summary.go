package cart

import (
	"github.com/rasaeats/api/internal/model"
	"github.com/shopspring/decimal"
)

// Group re-groups persisted order lines by (food ID, take-away flag) for
// display. Each group collapses into one synthetic line: the first member's
// fields with quantity and total price summed. Input order is preserved.
// Note this key is coarser than the cart merge key, so lines that differ
// only in options or remarks fold together here.
func Group(items []model.CartItem) []model.CartItem {
	type slot struct{ idx int }
	index := make(map[groupKey]slot)
	var out []model.CartItem

	for _, item := range items {
		k := groupKey{foodID: item.Food.ID, takeAway: item.TakeAway}
		if s, ok := index[k]; ok {
			out[s.idx].Quantity += item.Quantity
			out[s.idx].TotalPrice = out[s.idx].TotalPrice.Add(item.TotalPrice)
			continue
		}
		index[k] = slot{idx: len(out)}
		out = append(out, item)
	}
	return out
}

type groupKey struct {
	foodID   string
	takeAway bool
}

// Subtotal sums total prices over the given lines. Grouping first and
// summing after yields the same value.
func Subtotal(items []model.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}

// Increase bumps the quantity of the first line in the ungrouped backing
// list matching (foodID, takeAway), recomputing its total from the full
// per-unit price. Returns the updated list.
func Increase(items []model.CartItem, foodID string, takeAway bool) []model.CartItem {
	for i := range items {
		if items[i].Food.ID == foodID && items[i].TakeAway == takeAway {
			items[i].Quantity++
			items[i].TotalPrice = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
			break
		}
	}
	return items
}

// Decrease lowers the quantity of the first matching line, removing it
// entirely when the quantity would drop to zero. Returns the updated list.
func Decrease(items []model.CartItem, foodID string, takeAway bool) []model.CartItem {
	for i := range items {
		if items[i].Food.ID != foodID || items[i].TakeAway != takeAway {
			continue
		}
		if items[i].Quantity <= 1 {
			return append(items[:i], items[i+1:]...)
		}
		items[i].Quantity--
		items[i].TotalPrice = items[i].UnitPrice.Mul(decimal.NewFromInt(int64(items[i].Quantity)))
		break
	}
	return items
}
