package domain

import "errors"

// Column names shared by the input files. Province geometry files carry their
// own name field, which the loader renames to ColProvince.
const (
	ColProvince = "provincia"

	// Trigger values, one row per province.
	ColTriggerMaxTemp     = "gatillo_temp_max_max"
	ColTriggerMaxHumidity = "gatillo_humedad_max"

	// Adjusted results, one row per province, year and month.
	ColYear            = "año"
	ColMonth           = "mes_num"
	ColMortalityPct    = "mortalidad_atribuible"
	ColMortalityCount  = "mort_atribuible"
	ColTempMinMax      = "temp_min_max"
	ColTempMaxMax      = "temp_max_max"
	ColHumidityMax     = "humedad_max"
	ColTotalDays       = "dias"
	ColConsecutiveTmin = "dias_consecutivos_tmin_" // suffixed by 22, 25, 28
	ColConsecutiveTmax = "dias_consecutivos_tmax_" // suffixed by 35, 38, 41
	ColConsecutiveHum  = "dias_consecutivos_humedad_"
)

// Datasets groups the three inputs after loading.
type Datasets struct {
	Provinces *Table // geometry, one row per province
	Triggers  *Table // TriggerRecord rows
	Results   *Table // AdjustedResultRecord rows
}

// Normalize applies NormalizeKey to the province column of every dataset.
// All join participants must go through it before any merge.
func (d *Datasets) Normalize() error {
	for _, t := range []*Table{d.Provinces, d.Triggers, d.Results} {
		if t == nil {
			continue
		}
		if err := NormalizeColumn(t, ColProvince); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that each dataset carries the columns the pipelines read.
func (d *Datasets) Validate() error {
	if d.Provinces == nil || d.Triggers == nil {
		return errors.New("datasets: provinces and trigger values are required")
	}
	if err := d.Provinces.RequireColumns(ColProvince); err != nil {
		return err
	}
	if err := d.Triggers.RequireColumns(ColProvince, ColTriggerMaxTemp, ColTriggerMaxHumidity); err != nil {
		return err
	}
	if d.Results != nil {
		if err := d.Results.RequireColumns(ColProvince, ColYear, ColMonth, ColMortalityCount); err != nil {
			return err
		}
	}
	return nil
}
