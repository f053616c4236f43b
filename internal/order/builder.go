package order

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mylaundry/internal/models"
)

// ErrDuplicatePackage reports an add of a package already in the draft.
// Informational: the draft is unchanged and still usable.
var ErrDuplicatePackage = errors.New("package already added to this order")

// ValidationError lists every requirement the draft currently violates,
// so the caller can present one consolidated message.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid order draft: " + strings.Join(e.Violations, "; ")
}

// Builder accumulates a single in-progress order draft and turns it
// into a submission payload. Scalar fields hold raw user input; nothing
// is validated until Validate so partially typed values never error.
type Builder struct {
	CustomerName   string
	CustomerPhone  string
	Weight         string
	CompletionDate string
	ReceivedDate   string

	packages []models.Package
	now      func() time.Time
}

// NewBuilder creates an empty draft with the received date defaulted to
// the current date.
func NewBuilder() *Builder {
	b := &Builder{now: time.Now}
	b.ReceivedDate = b.today()
	return b
}

func (b *Builder) today() string {
	if b.now == nil {
		b.now = time.Now
	}
	return b.now().Format("2006-01-02")
}

// AddPackage inserts the package unless one with the same id is already
// selected, in which case it returns ErrDuplicatePackage and leaves the
// draft unchanged.
func (b *Builder) AddPackage(p models.Package) error {
	for _, have := range b.packages {
		if have.ID == p.ID {
			return ErrDuplicatePackage
		}
	}
	b.packages = append(b.packages, p)
	return nil
}

// RemovePackage removes the selected package with the given id. Absent
// ids are a no-op.
func (b *Builder) RemovePackage(id string) {
	kept := b.packages[:0]
	for _, p := range b.packages {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	b.packages = kept
}

// Packages returns the currently selected packages in insertion order.
// The slice is a copy; the draft is only changed through AddPackage and
// RemovePackage.
func (b *Builder) Packages() []models.Package {
	return append([]models.Package(nil), b.packages...)
}

// SetField updates one scalar draft field by name. Unknown names are a
// caller bug and rejected.
func (b *Builder) SetField(name, value string) error {
	switch name {
	case "customerName":
		b.CustomerName = value
	case "customerPhone":
		b.CustomerPhone = value
	case "weight":
		b.Weight = value
	case "completionDate":
		b.CompletionDate = value
	case "receivedDate":
		b.ReceivedDate = value
	default:
		return fmt.Errorf("unknown draft field %q", name)
	}
	return nil
}

func (b *Builder) parseWeight() (float64, bool) {
	w, err := strconv.ParseFloat(strings.TrimSpace(b.Weight), 64)
	if err != nil || w <= 0 {
		return 0, false
	}
	return w, true
}

// ComputeTotal returns the running total, weight times unit price
// summed over the selected packages. It is 0 while the weight is not
// yet a valid positive number or nothing is selected, so it is safe to
// call for live display at any point.
func (b *Builder) ComputeTotal() float64 {
	w, ok := b.parseWeight()
	if !ok {
		return 0
	}

	var total float64
	for _, p := range b.packages {
		total += w * p.Price
	}
	return total
}

// Validate checks the draft for submission and reports every violated
// condition, not just the first. A nil return means the draft can be
// turned into a payload.
func (b *Builder) Validate() error {
	var violations []string

	if strings.TrimSpace(b.CustomerName) == "" {
		violations = append(violations, "customer name is required")
	}
	if strings.TrimSpace(b.CustomerPhone) == "" {
		violations = append(violations, "customer phone is required")
	}
	if strings.TrimSpace(b.Weight) == "" {
		violations = append(violations, "weight is required")
	} else if _, ok := b.parseWeight(); !ok {
		violations = append(violations, "weight must be a positive number")
	}
	if strings.TrimSpace(b.CompletionDate) == "" {
		violations = append(violations, "completion date is required")
	}
	if strings.TrimSpace(b.ReceivedDate) == "" {
		violations = append(violations, "received date is required")
	}
	if len(b.packages) == 0 {
		violations = append(violations, "at least one package must be selected")
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Payload is the order-creation request body.
type Payload struct {
	CustomerName   string   `json:"customerName"`
	CustomerPhone  string   `json:"customerPhone"`
	Weight         float64  `json:"weight"`
	CompletionDate string   `json:"completionDate"`
	ReceivedDate   string   `json:"receivedDate"`
	TotalPrice     float64  `json:"totalPrice"`
	Packages       []string `json:"packages"`
}

// BuildPayload serializes the draft for submission. It must only be
// called after Validate has returned nil.
func (b *Builder) BuildPayload() Payload {
	w, _ := b.parseWeight()
	ids := make([]string, 0, len(b.packages))
	for _, p := range b.packages {
		ids = append(ids, p.ID)
	}
	return Payload{
		CustomerName:   b.CustomerName,
		CustomerPhone:  b.CustomerPhone,
		Weight:         w,
		CompletionDate: b.CompletionDate,
		ReceivedDate:   b.ReceivedDate,
		TotalPrice:     b.ComputeTotal(),
		Packages:       ids,
	}
}

// Reset clears the draft back to empty after a confirmed submission,
// with the received date re-defaulted to the current date.
func (b *Builder) Reset() {
	*b = Builder{now: b.now}
	b.ReceivedDate = b.today()
}
