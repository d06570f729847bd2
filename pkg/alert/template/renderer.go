package template

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Render substitutes {placeholder} occurrences in a template with values
// from the data map. Unknown placeholders are left untouched so a typo in
// a template is visible instead of silently blank.
func Render(tmpl string, data map[string]interface{}) string {
	if tmpl == "" || len(data) == 0 {
		return tmpl
	}
	out := tmpl
	for key, value := range data {
		out = strings.ReplaceAll(out, "{"+key+"}", formatValue(value))
	}
	return out
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format("02/01/2006")
	case float64:
		// JSONB numbers arrive as float64; render integers without decimals
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', 2, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
