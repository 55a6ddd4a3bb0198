package sessions

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/jellydator/validation"
)

// Session field limits.
const (
	MaxAbsPnL        = 1_000_000
	MaxNotesLength   = 5000
	MaxInstrumentLen = 20
)

// Outcomes lists the accepted values of a session's outcome.
var Outcomes = []string{"win", "loss", "breakeven", "no-trade"}

var instrumentPattern = regexp.MustCompile(`^[A-Z0-9\-/.]+$`)

var htmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// fields holds the validated, user-entered part of a session.
type fields struct {
	PnL        *float64 `json:"pnl"`
	Instrument string   `json:"instrument"`
	Outcome    string   `json:"outcome"`
	Notes      string   `json:"notes"`
}

func (f fields) validate() error {
	outcomes := make([]any, len(Outcomes))
	for i, o := range Outcomes {
		outcomes[i] = o
	}
	return validation.ValidateStruct(&f,
		validation.Field(&f.PnL,
			validation.Min(float64(-MaxAbsPnL)).Error("pnl value seems unrealistic"),
			validation.Max(float64(MaxAbsPnL)).Error("pnl value seems unrealistic"),
		),
		validation.Field(&f.Instrument,
			validation.Required.Error("instrument is required"),
			validation.RuneLength(1, MaxInstrumentLen).Error("instrument name too long"),
			validation.Match(instrumentPattern).Error("invalid instrument format"),
		),
		validation.Field(&f.Outcome,
			validation.Required.Error("outcome is required"),
			validation.In(outcomes...).Error("invalid outcome value"),
		),
		validation.Field(&f.Notes,
			validation.RuneLength(0, MaxNotesLength).Error(
				fmt.Sprintf("notes must be less than %d characters", MaxNotesLength)),
		),
	)
}

// Sanitize validates the user-entered fields of session and normalizes
// them in place: pnl becomes a number (or null when empty), instrument is
// trimmed and upper-cased, and notes are trimmed and HTML-escaped. Other
// fields pass through untouched. Failures wrap ErrInvalidSession.
func Sanitize(session map[string]any) error {
	var f fields
	var err error
	if f.PnL, err = pnlValue(session["pnl"]); err != nil {
		return err
	}
	if f.Instrument, err = stringField(session, "instrument"); err != nil {
		return err
	}
	if f.Outcome, err = stringField(session, "outcome"); err != nil {
		return err
	}
	if f.Notes, err = stringField(session, "notes"); err != nil {
		return err
	}
	f.Instrument = strings.ToUpper(strings.TrimSpace(f.Instrument))
	f.Notes = strings.TrimSpace(f.Notes)

	if err := f.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	if _, ok := session["pnl"]; ok {
		if f.PnL == nil {
			session["pnl"] = nil
		} else {
			session["pnl"] = *f.PnL
		}
	}
	session["instrument"] = f.Instrument
	if _, ok := session["notes"]; ok {
		session["notes"] = htmlEscaper.Replace(f.Notes)
	}
	return nil
}

// pnlValue accepts a JSON number or a numeric string. Absent, null and
// blank values mean no P&L.
func pnlValue(v any) (*float64, error) {
	var n float64
	var err error
	switch t := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		n, err = t.Float64()
	case float64:
		n = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		n, err = strconv.ParseFloat(s, 64)
	default:
		err = fmt.Errorf("unexpected %T", v)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: pnl must be a number", ErrInvalidSession)
	}
	return &n, nil
}

func stringField(session map[string]any, name string) (string, error) {
	switch t := session[name].(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidSession, name)
	}
}
