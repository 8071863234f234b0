// Package cart holds the session-owned cart aggregator and the order
// summary grouper. A cart belongs to exactly one UI session; all mutations
// are synchronous and resolve locally.
package cart

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rasaeats/api/internal/model"
	"github.com/shopspring/decimal"
)

// Cart merges line items by identity key and keeps totals consistent:
// every line satisfies totalPrice == quantity x unitPrice, where unitPrice
// includes the base food price, all selected options and the take-away
// surcharge.
type Cart struct {
	mu    sync.Mutex
	lines []model.CartItem
	subs  []func()
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{}
}

// Key is the merge identity of a line: food, exact option selection,
// take-away flag and remarks. Lines differing in any part stay separate.
func Key(item model.CartItem) string {
	var b strings.Builder
	b.WriteString(item.Food.ID)
	b.WriteByte('|')
	b.WriteString(strings.Join(optionNames(item.Sauces), ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(optionNames(item.AddOns), ","))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(item.TakeAway))
	b.WriteByte('|')
	b.WriteString(item.Remarks)
	return b.String()
}

func optionNames(opts []model.Option) []string {
	names := make([]string, len(opts))
	for i, o := range opts {
		names[i] = o.Name
	}
	sort.Strings(names)
	return names
}

// Add merges the item into an existing line with the same identity key, or
// appends it. The merged line's total is recomputed from the full per-unit
// price, so option and take-away surcharges survive the merge.
func (c *Cart) Add(item model.CartItem) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	item.UnitPrice = model.LineUnitPrice(item.Food, item.Sauces, item.AddOns, item.TakeAway)
	item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

	c.mu.Lock()
	key := Key(item)
	merged := false
	for i := range c.lines {
		if Key(c.lines[i]) == key {
			c.lines[i].Quantity += item.Quantity
			c.lines[i].TotalPrice = c.lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(c.lines[i].Quantity)))
			merged = true
			break
		}
	}
	if !merged {
		c.lines = append(c.lines, item)
	}
	c.mu.Unlock()
	c.notify()
}

// UpdateQuantity sets the quantity of the line matching item's identity
// key. A quantity of zero or less removes the line.
func (c *Cart) UpdateQuantity(item model.CartItem, quantity int) {
	c.mu.Lock()
	key := Key(item)
	for i := range c.lines {
		if Key(c.lines[i]) != key {
			continue
		}
		if quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			break
		}
		c.lines[i].Quantity = quantity
		c.lines[i].TotalPrice = c.lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		break
	}
	c.mu.Unlock()
	c.notify()
}

// Remove deletes the line matching item's identity key. Removing an absent
// line is a no-op.
func (c *Cart) Remove(item model.CartItem) {
	c.mu.Lock()
	key := Key(item)
	for i := range c.lines {
		if Key(c.lines[i]) == key {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.notify()
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
	c.notify()
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []model.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.CartItem, len(c.lines))
	copy(out, c.lines)
	return out
}

// TotalPrice is the sum of line totals.
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.TotalPrice)
	}
	return total
}

// TotalQuantity is the sum of line quantities.
func (c *Cart) TotalQuantity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Subscribe registers fn to run after every mutation. Subscriptions live as
// long as the cart; the session owns both.
func (c *Cart) Subscribe(fn func()) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

func (c *Cart) notify() {
	c.mu.Lock()
	subs := make([]func(), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
