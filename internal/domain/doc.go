// Package domain models the province-level climate trigger and attributable
// mortality data rendered on the map of Spain.
//
// # Data Sources
//
// Three files feed the maps:
//
//	nuevos_valores_gatillo.csv          trigger values, one row per province
//	resultados_ajustados.csv            adjusted results, one row per province/year/month
//	georef-spain-provincia-millesime.*  province polygons (shapefile or GeoJSON)
//
// The polygon file names provinces in its own field ("prov_name" in the
// OpenDataSoft export); the loader renames it to [ColProvince] so every table
// shares the same join key.
//
// # Trigger Values
//
// A trigger value is the province-specific climate threshold above which
// mortality effects are modeled to begin:
//
//	gatillo_temp_max_max   maximum daily temperature threshold (°C)
//	gatillo_humedad_max    maximum relative humidity threshold (%)
//
// # Adjusted Results
//
// Modeled mortality attributed to conditions exceeding the trigger values for
// a province in a given year ("año") and month ("mes_num"):
//
//	mortalidad_atribuible           attributable mortality as a percentage
//	mort_atribuible                 attributable death count
//	temp_min_max, temp_max_max      monthly extremes (°C)
//	humedad_max                     monthly humidity maximum (%)
//	dias_consecutivos_tmin_{22,25,28}
//	dias_consecutivos_tmax_{35,38,41}
//	dias_consecutivos_humedad_{70,80,90}
//	                                longest run of days at or above each band
//	dias                            days covered by the row
//
// # Join Keys
//
// Province names are compared after [NormalizeKey] (uppercase, trimmed). Source
// files disagree on casing and padding, and a key left unnormalized on either
// side silently drops out of a join. [Datasets.Normalize] is applied at load
// time to every table.
//
// Joins never deduplicate rows. Several result rows per province (one per
// period) all survive a join until the period filter narrows them to one.
// Column name collisions keep the first table's column; the trigger file's
// copy of "mort_atribuible" therefore never shadows the results' count.
//
// # Missing Data
//
// A province present in the polygon file but absent from a joined table keeps
// its row with null values. The map draws it with the no-data fill and a blank
// tooltip. This is expected, not an error.
package domain
