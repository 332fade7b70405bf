package domain

import "time"

// AttemptOutcome is the per-bot entry of a pass summary.
type AttemptOutcome struct {
	BotID       string    `json:"bot_id"`
	BotName     string    `json:"bot_name"`
	Direction   Direction `json:"direction,omitempty"`
	Success     bool      `json:"success"`
	Skipped     bool      `json:"skipped,omitempty"` // abandoned without touching the bot row
	ErrorKind   string    `json:"error_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
	XRPAmount   float64   `json:"xrp_amount,omitempty"`
	TokenAmount float64   `json:"token_amount,omitempty"`
	Price       float64   `json:"price,omitempty"`
	Paused      bool      `json:"paused"`
	StartedAt   time.Time `json:"started_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// PassSummary is the response contract of one executor pass.
type PassSummary struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Attempted  int              `json:"attempted"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	Outcomes   []AttemptOutcome `json:"outcomes"`
}

// Add appends an outcome and updates the tallies.
func (s *PassSummary) Add(o AttemptOutcome) {
	s.Attempted++
	switch {
	case o.Success:
		s.Succeeded++
	case o.Skipped:
		s.Skipped++
	default:
		s.Failed++
	}
	s.Outcomes = append(s.Outcomes, o)
}
