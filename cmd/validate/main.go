// Command validate performs data integrity checks on the map inputs: the
// province polygons, the trigger values and the adjusted results. It reports
// provinces that would render blank, malformed periods and duplicate keys
// before the map server is started against the files.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -triggers nuevos_valores_gatillo.csv \
//	  -results resultados_ajustados.csv \
//	  -provinces georef-spain-provincia-millesime.shp
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/climate-trigger-map/internal/adapter/dataset"
	"github.com/couchcryptid/climate-trigger-map/internal/config"
	"github.com/couchcryptid/climate-trigger-map/internal/domain"
	"github.com/couchcryptid/climate-trigger-map/internal/mapdef"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	paths := dataset.Paths{}
	flag.StringVar(&paths.Triggers, "triggers", cfg.TriggerValuesPath, "trigger values CSV")
	flag.StringVar(&paths.Results, "results", cfg.AdjustedResultsPath, "adjusted results CSV, empty to skip")
	flag.StringVar(&paths.Provinces, "provinces", cfg.ProvincesPath, "province polygons (.shp or .geojson)")
	flag.StringVar(&paths.NameField, "name-field", cfg.ProvinceNameField, "province name attribute")
	mapsPath := flag.String("maps", cfg.MapDefinitionsPath, "YAML map definitions")
	flag.Parse()

	os.Exit(run(context.Background(), os.Stdout, paths, *mapsPath))
}

func run(ctx context.Context, out io.Writer, paths dataset.Paths, mapsPath string) int {
	fmt.Fprintln(out, "=== Climate Map Input Validation ===")
	fmt.Fprintln(out)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	data, err := dataset.NewFileSource(paths, logger).Extract(ctx)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	defs, err := mapdef.Load(mapsPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSchema(data, defs),
	}
	// Later phases rely on the province column being present.
	if phases[0].passed() {
		if err := data.Normalize(); err != nil {
			phases[0].errorf("normalize: %v", err)
		} else {
			phases = append(phases,
				validateGeometry(data.Provinces),
				validateCoverage(data),
				validatePeriods(data.Results),
			)
		}
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d provinces, %d trigger values, %d adjusted results\n",
		rows(data.Provinces), rows(data.Triggers), rows(data.Results))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func rows(t *domain.Table) int {
	if t == nil {
		return 0
	}
	return t.Len()
}

// ── Phases ──

// validateSchema checks required columns and the columns each map reads.
func validateSchema(data *domain.Datasets, defs mapdef.Set) *phase {
	p := &phase{name: "Phase 1: Schema"}
	if err := data.Validate(); err != nil {
		p.errorf("%v", err)
		return p
	}

	// The trigger map reads the trigger table; the mortality map reads the
	// results joined with triggers, so either side may supply a column.
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		def := defs[name]
		tables := []*domain.Table{data.Triggers}
		if name == mapdef.Mortality {
			if data.Results == nil {
				continue
			}
			tables = append(tables, data.Results)
		}
		for _, col := range def.Columns() {
			if !anyHasColumn(tables, col) {
				p.errorf("map %q: column %q not found", name, col)
			}
		}
	}
	return p
}

func anyHasColumn(tables []*domain.Table, col string) bool {
	for _, t := range tables {
		if t.HasColumn(col) {
			return true
		}
	}
	return false
}

// validateGeometry checks that every province has a polygon and a unique name.
func validateGeometry(provinces *domain.Table) *phase {
	p := &phase{name: "Phase 2: Province geometry"}
	seen := make(map[string]int)
	for i, r := range provinces.Rows {
		name := r.Get(domain.ColProvince)
		if name.IsNull() {
			p.errorf("feature %d: missing province name", i)
			continue
		}
		if r.Geometry == nil {
			p.errorf("%s: no geometry", name)
		}
		if first, dup := seen[name.String()]; dup {
			p.errorf("%s: duplicate of feature %d", name, first)
			continue
		}
		seen[name.String()] = i
	}
	return p
}

// validateCoverage reports provinces present in one dataset but not another.
// These join to nothing and render blank on the map.
func validateCoverage(data *domain.Datasets) *phase {
	p := &phase{name: "Phase 3: Province coverage"}
	for _, k := range domain.Unmatched(data.Provinces, data.Triggers, domain.ColProvince) {
		p.errorf("%s: no trigger values", k)
	}
	for _, k := range domain.Unmatched(data.Triggers, data.Provinces, domain.ColProvince) {
		p.errorf("%s: trigger values for unknown province", k)
	}
	if data.Results != nil {
		for _, k := range domain.Unmatched(data.Results, data.Provinces, domain.ColProvince) {
			p.errorf("%s: adjusted results for unknown province", k)
		}
		for _, k := range domain.Unmatched(data.Results, data.Triggers, domain.ColProvince) {
			p.errorf("%s: adjusted results without trigger values", k)
		}
	}
	return p
}

// validatePeriods checks year and month values and duplicate
// (province, year, month) keys in the adjusted results.
func validatePeriods(results *domain.Table) *phase {
	p := &phase{name: "Phase 4: Result periods"}
	if results == nil {
		return p
	}

	seen := make(map[string]int)
	for i, r := range results.Rows {
		line := i + 2
		year, okYear := r.Get(domain.ColYear).Int()
		month, okMonth := r.Get(domain.ColMonth).Int()
		if !okYear {
			p.errorf("line %d: %s %q is not an integer", line, domain.ColYear, r.Get(domain.ColYear))
		}
		if !okMonth || month < 1 || month > 12 {
			p.errorf("line %d: %s %q is not a month", line, domain.ColMonth, r.Get(domain.ColMonth))
		}
		if !okYear || !okMonth {
			continue
		}

		key := strings.Join([]string{r.Get(domain.ColProvince).String(), fmt.Sprint(year), fmt.Sprint(month)}, "/")
		if first, dup := seen[key]; dup {
			p.errorf("line %d: %s duplicates line %d", line, key, first)
			continue
		}
		seen[key] = line
	}
	return p
}
