package validators

import (
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
)

const dateLayout = "2006-01-02"

// ParseQueryDate reads a YYYY-MM-DD query parameter, falling back to the
// provided default when absent.
func ParseQueryDate(r *http.Request, key string, defaultVal time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a YYYY-MM-DD date").
			WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
