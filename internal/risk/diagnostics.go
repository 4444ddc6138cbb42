package risk

import (
	"errors"
	"fmt"

	apperrors "kite-riskdesk/internal/errors"
)

// Diagnostic stages.
const (
	StageFlatten  = "flatten"
	StagePosition = "position"
)

// Diagnostic explains why an upstream record was dropped or degraded.
// Leg is the child order index within a group, or -1 when the whole record
// is affected.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Index   int    `json:"index"`
	Leg     int    `json:"leg"`
	Subject string `json:"subject,omitempty"`
	Reason  string `json:"reason"`
}

func (d Diagnostic) String() string {
	where := fmt.Sprintf("%s[%d]", d.Stage, d.Index)
	if d.Leg >= 0 {
		where += fmt.Sprintf(".orders[%d]", d.Leg)
	}
	if d.Subject != "" {
		where += " " + d.Subject
	}
	return where + ": " + d.Reason
}

// Err returns the diagnostic as a RecordError wrapping ErrMalformedRecord.
func (d Diagnostic) Err() error {
	reason := d.Reason
	if d.Leg >= 0 {
		reason = fmt.Sprintf("orders[%d]: %s", d.Leg, reason)
	}
	return apperrors.NewRecordError(d.Stage, d.Index, d.Subject, reason, apperrors.ErrMalformedRecord)
}

// Err joins the diagnostics into one error, or returns nil when every record
// was used as given.
func (p PortfolioRisk) Err() error {
	if len(p.Diagnostics) == 0 {
		return nil
	}
	errs := make([]error, len(p.Diagnostics))
	for i, d := range p.Diagnostics {
		errs[i] = d.Err()
	}
	return errors.Join(errs...)
}
