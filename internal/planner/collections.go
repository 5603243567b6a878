package planner

import (
	"context"
	"strings"

	"github.com/sandeepkv93/wedplan/internal/model"
	"github.com/sandeepkv93/wedplan/internal/store"
)

// Collections groups the planner lists that sit next to the timeline.
type Collections struct {
	Guests  store.Collection[model.Guest]
	Budget  store.Collection[model.BudgetItem]
	Vendors store.Collection[model.Vendor]
}

func NewMemoryCollections() Collections {
	return Collections{
		Guests:  store.NewMemory[model.Guest](),
		Budget:  store.NewMemory[model.BudgetItem](),
		Vendors: store.NewMemory[model.Vendor](),
	}
}

type RSVPSummary struct {
	Invited  int
	Accepted int
	Declined int
	Pending  int
	// Headcount is accepted guests plus their plus-ones.
	Headcount int
}

func GuestSummary(ctx context.Context, guests store.Collection[model.Guest]) (RSVPSummary, error) {
	all, err := guests.List(ctx, nil)
	if err != nil {
		return RSVPSummary{}, err
	}
	var s RSVPSummary
	for _, g := range all {
		s.Invited++
		switch g.RSVP {
		case model.RSVPAccepted:
			s.Accepted++
			s.Headcount += 1 + g.PlusOnes
		case model.RSVPDeclined:
			s.Declined++
		default:
			s.Pending++
		}
	}
	return s, nil
}

// BudgetTotals are in cents.
type BudgetTotals struct {
	Scope   model.BudgetScope
	Items   int
	Planned int64
	Actual  int64
	Paid    int64
	Open    int64
}

// Remaining is planned minus actual; negative means over budget.
func (b BudgetTotals) Remaining() int64 { return b.Planned - b.Actual }

func BudgetSummary(ctx context.Context, items store.Collection[model.BudgetItem], scope model.BudgetScope) (BudgetTotals, error) {
	list, err := items.List(ctx, func(b model.BudgetItem) bool { return b.Scope == scope })
	if err != nil {
		return BudgetTotals{}, err
	}
	t := BudgetTotals{Scope: scope, Items: len(list)}
	for _, b := range list {
		t.Planned += b.Planned
		t.Actual += b.Actual
		if b.Paid {
			t.Paid += b.Actual
		} else {
			t.Open += b.Actual
		}
	}
	return t, nil
}

// VendorsFor lists vendors offering service, matched case-insensitively. An
// empty service lists every vendor.
func VendorsFor(ctx context.Context, vendors store.Collection[model.Vendor], service string) ([]model.Vendor, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return vendors.List(ctx, nil)
	}
	return vendors.List(ctx, func(v model.Vendor) bool { return strings.EqualFold(v.Service, service) })
}
