package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Title-specific validation errors
var (
	// ErrTitleIDEmpty is returned when a title ID is empty or nil.
	ErrTitleIDEmpty = errors.New("title ID cannot be empty")

	// ErrTitleNameEmpty is returned when a title's name is empty.
	ErrTitleNameEmpty = errors.New("title name cannot be empty")

	// ErrTitleCopiesNegative is returned when a title's copy counts are negative.
	ErrTitleCopiesNegative = errors.New("copy counts cannot be negative")

	// ErrTitleCopiesExceedTotal is returned when available copies exceed total copies.
	ErrTitleCopiesExceedTotal = errors.New("available copies cannot exceed total copies")
)

// Title represents a catalog entry with a pool of physical copies that can be
// lent out. The catalog itself (creation, editing, search) is managed by an
// external system; circulation only reads titles and adjusts AvailableCopies.
type Title struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Author          string    `json:"author"`
	Price           float64   `json:"price"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewTitle creates a new Title with the given name, author, price and copy count.
// All copies start available. Returns an error if validation fails.
func NewTitle(name, author string, price float64, totalCopies int) (*Title, error) {
	title := &Title{
		ID:              uuid.New(),
		Name:            name,
		Author:          author,
		Price:           price,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}

	if err := title.Validate(); err != nil {
		return nil, err
	}

	return title, nil
}

// Validate checks if the Title has valid data.
// Returns an error if any field fails validation.
func (t *Title) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTitleIDEmpty
	}

	if t.Name == "" {
		return ErrTitleNameEmpty
	}

	if t.TotalCopies < 0 || t.AvailableCopies < 0 {
		return ErrTitleCopiesNegative
	}

	if t.AvailableCopies > t.TotalCopies {
		return ErrTitleCopiesExceedTotal
	}

	return nil
}

// InStock reports whether at least one copy is currently available.
func (t *Title) InStock() bool {
	return t.AvailableCopies > 0
}
