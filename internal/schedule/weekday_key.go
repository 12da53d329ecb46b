package schedule

import (
	"strings"

	"github.com/mealrounds/mealrounds-backend/pkg/enums"
	pkgerrors "github.com/mealrounds/mealrounds-backend/pkg/errors"
)

// NormalizeWeekdayKey strips the optional service-kind suffix from a
// delivery-weekday key ("Thursday_Food" -> Thursday, food). Keys without a
// suffix parse as a bare weekday. The suffix form is a legacy disambiguation
// scheme; new configurations should carry the weekday and kind separately.
func NormalizeWeekdayKey(key string) (enums.Weekday, enums.ServiceKind, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "empty delivery weekday key")
	}

	dayPart := trimmed
	kindPart := ""
	if idx := strings.Index(trimmed, "_"); idx >= 0 {
		dayPart = trimmed[:idx]
		kindPart = trimmed[idx+1:]
	}

	weekday, err := enums.ParseWeekday(dayPart)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery weekday key "+key)
	}

	if kindPart == "" {
		return weekday, "", nil
	}
	kind, err := enums.ParseServiceKind(strings.ToLower(kindPart))
	if err != nil {
		// Unknown suffixes are tolerated: the weekday is the authoritative part.
		return weekday, "", nil
	}
	return weekday, kind, nil
}
