package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SeatCategory is a pricing tier covering the inclusive seat range [From, To].
type SeatCategory struct {
	Name  string
	From  int
	To    int
	Price decimal.Decimal
}

func (c SeatCategory) Contains(seat int) bool {
	return seat >= c.From && seat <= c.To
}

// Layout is the seat map of a show. Categories are sorted by range and
// partition 1..TotalSeats without gaps or overlaps.
type Layout struct {
	Categories []SeatCategory
	TotalSeats int
}

// NewLayout validates that the categories partition the seat-number space
// starting at seat 1 and returns the resulting layout.
func NewLayout(categories []SeatCategory) (Layout, error) {
	if len(categories) == 0 {
		return Layout{}, fmt.Errorf("%w: at least one category is required", ErrInvalidLayout)
	}

	sorted := make([]SeatCategory, len(categories))
	copy(sorted, categories)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

	next := 1
	for _, c := range sorted {
		if c.Name == "" {
			return Layout{}, fmt.Errorf("%w: category name is required", ErrInvalidLayout)
		}

		if c.From > c.To {
			return Layout{}, fmt.Errorf("%w: category %s has an empty range %d-%d", ErrInvalidLayout, c.Name, c.From, c.To)
		}

		if c.Price.IsNegative() {
			return Layout{}, fmt.Errorf("%w: category %s has a negative price", ErrInvalidLayout, c.Name)
		}

		switch {
		case c.From < next:
			return Layout{}, fmt.Errorf("%w: category %s overlaps seat %d", ErrInvalidLayout, c.Name, c.From)
		case c.From > next:
			return Layout{}, fmt.Errorf("%w: seats %d-%d are not covered by any category", ErrInvalidLayout, next, c.From-1)
		}

		next = c.To + 1
	}

	return Layout{
		Categories: sorted,
		TotalSeats: next - 1,
	}, nil
}

func (l Layout) CategoryOf(seat int) (SeatCategory, error) {
	// Categories are sorted and contiguous, so a binary search is enough.
	i := sort.Search(len(l.Categories), func(i int) bool { return l.Categories[i].To >= seat })
	if i == len(l.Categories) || !l.Categories[i].Contains(seat) {
		return SeatCategory{}, &SeatNotFoundError{Seat: seat}
	}

	return l.Categories[i], nil
}

func (l Layout) PriceOf(seat int) (decimal.Decimal, error) {
	category, err := l.CategoryOf(seat)
	if err != nil {
		return decimal.Zero, err
	}

	return category.Price, nil
}

// Total sums the category price of each seat.
func (l Layout) Total(seats []int) (decimal.Decimal, error) {
	total := decimal.Zero

	for _, seat := range seats {
		price, err := l.PriceOf(seat)
		if err != nil {
			return decimal.Zero, err
		}

		total = total.Add(price)
	}

	return total, nil
}

type Show struct {
	ID        int
	MovieID   int
	TheaterID int
	StartTime time.Time
	EndTime   time.Time
	Layout    Layout
}

// ShowRepository is the read side of the catalog collaborator.
type ShowRepository interface {
	GetByID(ctx context.Context, id int) (*Show, error)
}
