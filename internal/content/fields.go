package content

import (
	"fmt"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts YAML timestamps as strings (yaml.v3 decodes them that
// way into any) or time.Time. Zone-less values are read in loc.
func parseTime(v any, loc *time.Location) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %v (%T)", v, v)
	}
}

func stringField(fields map[string]any, key string) string {
	if s, ok := fields[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// tagsField accepts a YAML list or a comma separated string.
func tagsField(v any) []string {
	switch t := v.(type) {
	case []any:
		tags := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case string:
				tags = append(tags, s)
			case nil:
			default:
				tags = append(tags, fmt.Sprint(s))
			}
		}
		return tags
	case []string:
		return t
	case string:
		return strings.Split(t, ",")
	default:
		return nil
	}
}
