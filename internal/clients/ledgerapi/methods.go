package ledgerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clarelia/finboard/internal/domain"
)

// wireLine is a general ledger entry as the source returns it. Amount
// fields arrive as JSON numbers or numeric strings depending on the
// source's export path, so they are decoded leniently.
type wireLine struct {
	AccountID string          `json:"account_id"`
	Label     string          `json:"label"`
	Debit     json.RawMessage `json:"debit"`
	Credit    json.RawMessage `json:"credit"`
}

// wireOperation is a payroll ledger operation as the source returns it.
type wireOperation struct {
	AccountID    string          `json:"account_id"`
	Label        string          `json:"label"`
	EmployeeName string          `json:"employee_name"`
	ContractID   string          `json:"contract_id"`
	Debit        json.RawMessage `json:"debit"`
	Credit       json.RawMessage `json:"credit"`
	Tags         []domain.Tag    `json:"tags"`
}

// wireWorkedDays is one employee's worked day count for a period.
type wireWorkedDays struct {
	EmployeeName string `json:"employee_name"`
	Days         int    `json:"days"`
}

// FetchLedgerLines retrieves the general ledger entries posted in
// [from, to). Entries that cannot be coerced into a typed line are
// skipped and counted; an empty result is a valid zero period.
func (c *Client) FetchLedgerLines(ctx context.Context, from, to time.Time) ([]domain.LedgerLine, error) {
	query := url.Values{}
	query.Set("from", from.Format("2006-01-02"))
	query.Set("to", to.Format("2006-01-02"))

	body, err := c.get(ctx, "/v1/ledger/lines", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger lines: %w", err)
	}

	data, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: ledger lines element is not an array: %v", domain.ErrMalformedPayload, err)
	}

	lines := make([]domain.LedgerLine, 0, len(raw))
	skipped := 0
	for _, entry := range raw {
		var wl wireLine
		if err := json.Unmarshal(entry, &wl); err != nil || strings.TrimSpace(wl.AccountID) == "" {
			skipped++
			continue
		}
		debit, derr := parseWireAmount(wl.Debit)
		credit, cerr := parseWireAmount(wl.Credit)
		if derr != nil || cerr != nil {
			skipped++
			continue
		}
		lines = append(lines, domain.LedgerLine{
			AccountID: wl.AccountID,
			Label:     wl.Label,
			Debit:     debit,
			Credit:    credit,
		})
	}

	if skipped > 0 {
		c.log.Warn().
			Int("skipped", skipped).
			Int("parsed", len(lines)).
			Msg("Skipped malformed ledger entries")
	}
	if len(raw) > 0 && len(lines) == 0 {
		return nil, fmt.Errorf("%w: no usable ledger entries out of %d", domain.ErrMalformedPayload, len(raw))
	}

	return lines, nil
}

// FetchPayrollOperations retrieves the payroll ledger operations of one
// period. Malformed entries are skipped the same way ledger lines are.
func (c *Client) FetchPayrollOperations(ctx context.Context, periodKey string) ([]domain.RawOperation, error) {
	query := url.Values{}
	query.Set("period", periodKey)

	body, err := c.get(ctx, "/v1/payroll/operations", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payroll operations: %w", err)
	}

	data, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: payroll operations element is not an array: %v", domain.ErrMalformedPayload, err)
	}

	ops := make([]domain.RawOperation, 0, len(raw))
	skipped := 0
	for _, entry := range raw {
		var wo wireOperation
		if err := json.Unmarshal(entry, &wo); err != nil || strings.TrimSpace(wo.AccountID) == "" {
			skipped++
			continue
		}
		debit, derr := parseWireAmount(wo.Debit)
		credit, cerr := parseWireAmount(wo.Credit)
		if derr != nil || cerr != nil {
			skipped++
			continue
		}
		ops = append(ops, domain.RawOperation{
			AccountID:    wo.AccountID,
			Label:        wo.Label,
			EmployeeName: wo.EmployeeName,
			ContractID:   wo.ContractID,
			Debit:        debit,
			Credit:       credit,
			Tags:         wo.Tags,
		})
	}

	if skipped > 0 {
		c.log.Warn().
			Int("skipped", skipped).
			Int("parsed", len(ops)).
			Str("period", periodKey).
			Msg("Skipped malformed payroll operations")
	}
	if len(raw) > 0 && len(ops) == 0 {
		return nil, fmt.Errorf("%w: no usable payroll operations out of %d", domain.ErrMalformedPayload, len(raw))
	}

	return ops, nil
}

// FetchWorkedDayCounts retrieves per-employee worked day counts for one
// period, keyed by employee name as the source spells it. Employees
// absent from the response simply have no count.
func (c *Client) FetchWorkedDayCounts(ctx context.Context, periodKey string, employeeNames []string) (map[string]int, error) {
	query := url.Values{}
	query.Set("period", periodKey)
	if len(employeeNames) > 0 {
		query.Set("employees", strings.Join(employeeNames, ","))
	}

	body, err := c.get(ctx, "/v1/payroll/worked-days", query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch worked day counts: %w", err)
	}

	data, err := decodeEnvelope(body)
	if err != nil {
		return nil, err
	}

	var raw []wireWorkedDays
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: worked days element is not an array: %v", domain.ErrMalformedPayload, err)
	}

	counts := make(map[string]int, len(raw))
	for _, wd := range raw {
		if strings.TrimSpace(wd.EmployeeName) == "" || wd.Days < 0 {
			continue
		}
		counts[wd.EmployeeName] = wd.Days
	}
	return counts, nil
}

// parseWireAmount decodes an amount field that may be absent, a JSON
// number or a numeric string.
func parseWireAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, nil
	}

	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return decimal.Zero, nil
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}
