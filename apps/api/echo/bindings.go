package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edvantage/academy/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindDate parses a YYYY-MM-DD query param; def is returned when absent.
func bindDate(ctx echo.Context, param string, def time.Time) (time.Time, error) {
	val := ctx.QueryParam(param)
	if val == "" {
		return def, nil
	}
	ts, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{Field: param, Error: "expected YYYY-MM-DD"})
	}
	return ts, nil
}
