package extract

import (
	"fmt"
	"strconv"
	"time"

	"github.com/driftsync/driftsync-api/internal/models"
)

// EncodeValue renders a driver value into the text form used for column
// cursors. Postgres casts the text back to the column's declared type when
// the cursor is used in a comparison, so numeric and temporal ordering is
// preserved; string and binary columns compare byte-wise either way.
func EncodeValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// parseTID parses a Postgres tid literal "(page,slot)" into a physical
// cursor position.
func parseTID(s string) (models.Cursor, error) {
	var page uint32
	var slot uint16
	if _, err := fmt.Sscanf(s, "(%d,%d)", &page, &slot); err != nil {
		return models.Cursor{}, dataError(err, "malformed ctid "+strconv.Quote(s))
	}
	return models.Cursor{Mode: models.PaginationPhysical, Page: page, Slot: slot}, nil
}
