package render

import (
	"html"
	"strconv"
	"strings"

	"github.com/couchcryptid/climate-trigger-map/internal/domain"
	"github.com/couchcryptid/climate-trigger-map/internal/mapdef"
)

// FormatValue renders a cell for a tooltip. decimal2 prints numbers with two
// decimal places; plain prints the value as stored, so integer counts never
// gain a fractional part. Null renders blank.
func FormatValue(v domain.Value, format string) string {
	if v.IsNull() {
		return ""
	}
	if format == mapdef.FormatDecimal2 {
		if f, ok := v.Float(); ok {
			return strconv.FormatFloat(f, 'f', 2, 64)
		}
	}
	return v.String()
}

// TooltipHTML builds the hover content for one province: the title in bold
// followed by one "label: value unit" line per field. Text is HTML-escaped.
func TooltipHTML(title string, fields []mapdef.Field, row domain.Row) string {
	var b strings.Builder
	b.WriteString(`<div style="font-size: 14px;"><b>`)
	b.WriteString(html.EscapeString(title))
	b.WriteString(`</b>`)
	for _, f := range fields {
		b.WriteString(`<br>`)
		b.WriteString(html.EscapeString(f.Label))
		b.WriteString(`: `)
		v := FormatValue(row.Get(f.Column), f.Format)
		if v == "" {
			continue
		}
		b.WriteString(html.EscapeString(v))
		b.WriteString(html.EscapeString(f.Unit))
	}
	b.WriteString(`</div>`)
	return b.String()
}
