package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"xubudget/internal/core"
	"xubudget/internal/ledger"
)

// amountField accepts a monetary amount as either a JSON number or a
// string ("12.50", "12,50").
type amountField struct {
	decimal.Decimal
}

func (a *amountField) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return core.ErrInvalidAmount
	}
	s = strings.Trim(s, `"`)
	d, err := core.ParseAmount(s)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

func amountPtr(a *amountField) *decimal.Decimal {
	if a == nil {
		return nil
	}
	return &a.Decimal
}

// resolveUser picks the acting user: cookie, then header, then query
// parameter, then the explicit body field, then the single default user.
func resolveUser(r *http.Request, bodyUserID string) string {
	if c, err := r.Cookie("user_id"); err == nil && c.Value != "" {
		return ledger.SanitizeUserID(c.Value)
	}
	if h := r.Header.Get("X-User-ID"); h != "" {
		return ledger.SanitizeUserID(h)
	}
	if q := r.URL.Query().Get("user_id"); q != "" {
		return ledger.SanitizeUserID(q)
	}
	if bodyUserID != "" {
		return ledger.SanitizeUserID(bodyUserID)
	}
	return ledger.DefaultUserID
}

// resolvePeriod reads the period query parameter in external form,
// defaulting to the calendar period containing now.
func resolvePeriod(r *http.Request, current core.Period) (core.Period, error) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return current, nil
	}
	return core.ParsePeriodExternal(raw)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
