package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
	"github.com/couchcryptid/climate-trigger-map/internal/mapdef"
	"github.com/couchcryptid/climate-trigger-map/internal/render"
)

var (
	// ErrUnknownPeriod is returned for a year or month outside the selectable options.
	ErrUnknownPeriod = errors.New("unknown period")
	// ErrNoPeriods is returned when the combined data holds no year/month pairs.
	ErrNoPeriods = errors.New("no periods in adjusted results")
)

// Selection is a year and month chosen in the period dropdowns.
type Selection struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Periods lists the options of the period dropdowns and the initial selection.
type Periods struct {
	Years   []int     `json:"years"`   // descending
	Months  []int     `json:"months"`  // ascending, every month present in any year
	Default Selection `json:"default"` // latest year, latest month within it
}

// Controller renders the mortality map for a chosen period. It holds the
// combined results and the province geometry read-only; View and Render are
// safe for concurrent use. Select keeps a current selection for a single
// interactive session.
type Controller struct {
	combined  *domain.Table
	provinces *domain.Table
	def       mapdef.Definition
	renderer  Renderer
	periods   Periods

	mu       sync.Mutex
	current  Selection
	artifact *render.Artifact
}

// NewController derives the period options from combined. combined is the
// inner join of adjusted results and trigger values; provinces carries the
// geometry every view is joined onto.
func NewController(combined, provinces *domain.Table, def mapdef.Definition, renderer Renderer) (*Controller, error) {
	periods, err := periodsOf(combined)
	if err != nil {
		return nil, err
	}
	return &Controller{
		combined:  combined,
		provinces: provinces,
		def:       def,
		renderer:  renderer,
		periods:   periods,
		current:   periods.Default,
	}, nil
}

func periodsOf(t *domain.Table) (Periods, error) {
	var (
		years, months []int
		def           Selection
	)
	for _, r := range t.Rows {
		y, ok := r.Get(domain.ColYear).Int()
		if !ok {
			continue
		}
		m, ok := r.Get(domain.ColMonth).Int()
		if !ok {
			continue
		}
		year, month := int(y), int(m)
		if !slices.Contains(years, year) {
			years = append(years, year)
		}
		if !slices.Contains(months, month) {
			months = append(months, month)
		}
		switch {
		case year > def.Year:
			def = Selection{Year: year, Month: month}
		case year == def.Year && month > def.Month:
			def.Month = month
		}
	}
	if len(years) == 0 {
		return Periods{}, ErrNoPeriods
	}

	slices.Sort(years)
	slices.Reverse(years)
	slices.Sort(months)
	return Periods{Years: years, Months: months, Default: def}, nil
}

// Periods returns the dropdown options.
func (c *Controller) Periods() Periods {
	return Periods{
		Years:   slices.Clone(c.periods.Years),
		Months:  slices.Clone(c.periods.Months),
		Default: c.periods.Default,
	}
}

// Default returns the latest year and the latest month present in that year.
func (c *Controller) Default() Selection {
	return c.periods.Default
}

// Validate checks sel against the year and month options. A valid pair may
// still have no rows, in which case every province renders blank.
func (c *Controller) Validate(sel Selection) error {
	if !slices.Contains(c.periods.Years, sel.Year) {
		return fmt.Errorf("year %d: %w", sel.Year, ErrUnknownPeriod)
	}
	if !slices.Contains(c.periods.Months, sel.Month) {
		return fmt.Errorf("month %d: %w", sel.Month, ErrUnknownPeriod)
	}
	return nil
}

// View filters the combined data to sel and joins it onto every province.
func (c *Controller) View(sel Selection) (*domain.Table, error) {
	if err := c.Validate(sel); err != nil {
		return nil, err
	}
	filtered := domain.FilterPeriod(c.combined, sel.Year, sel.Month)
	view, err := domain.LeftJoin(c.provinces, filtered, domain.ColProvince)
	if err != nil {
		return nil, fmt.Errorf("join provinces for %d-%02d: %w", sel.Year, sel.Month, err)
	}
	return view, nil
}

// Unmatched returns the provinces left without data for sel.
func (c *Controller) Unmatched(sel Selection) []string {
	filtered := domain.FilterPeriod(c.combined, sel.Year, sel.Month)
	return domain.Unmatched(c.provinces, filtered, domain.ColProvince)
}

// Render builds the mortality map for sel. Every call filters, joins and
// renders from scratch.
func (c *Controller) Render(ctx context.Context, sel Selection) (*render.Artifact, error) {
	view, err := c.View(sel)
	if err != nil {
		return nil, err
	}
	return c.renderView(ctx, view, sel)
}

func (c *Controller) renderView(ctx context.Context, view *domain.Table, sel Selection) (*render.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := render.Compose(c.def, view)
	if err != nil {
		return nil, err
	}
	return c.renderer.Render(m, &render.Selector{
		Years:  c.periods.Years,
		Months: c.periods.Months,
		Year:   sel.Year,
		Month:  sel.Month,
	})
}

// Select renders the map for year and month and makes it the current one.
// On error the current selection is left unchanged.
func (c *Controller) Select(ctx context.Context, year, month int) (*render.Artifact, error) {
	sel := Selection{Year: year, Month: month}
	art, err := c.Render(ctx, sel)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = sel
	c.artifact = art
	return art, nil
}

// Current returns the last selection and its map. The map is nil until the
// first successful Select.
func (c *Controller) Current() (Selection, *render.Artifact) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.artifact
}
