package notify

import "time"

// formatDateTime renders a timestamp variable. Values that arrive through
// the JSON queue payload are RFC 3339 strings, local calls pass time.Time.
func formatDateTime(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01-02 15:04")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return t
		}
		return parsed.Format("2006-01-02 15:04")
	default:
		return ""
	}
}
