package stream

// Stream is a continuous payout from Sender to Recipient at RatePerSecond,
// capped at Cap. Withdrawn only grows and never exceeds Cap; a stream with
// Withdrawn == Cap is exhausted but the record is retained for auditability.
type Stream struct {
	ID            int64
	Sender        string
	Recipient     string
	RatePerSecond int64
	Cap           int64
	StartTime     int64
	Withdrawn     int64
}

// AccruedAt returns the total value accrued by the stream at the given unix
// time, clamped to the cap. Negative elapsed time reads as zero accrual.
func (s Stream) AccruedAt(now int64) int64 {
	elapsed := now - s.StartTime
	if elapsed <= 0 {
		return 0
	}
	accrued := s.RatePerSecond * elapsed
	// Saturate on multiplication overflow; the cap bounds the answer anyway.
	if s.RatePerSecond != 0 && accrued/s.RatePerSecond != elapsed {
		return s.Cap
	}
	if accrued > s.Cap {
		return s.Cap
	}
	return accrued
}

// WithdrawableAt returns the accrued-but-unpaid amount at the given unix time.
func (s Stream) WithdrawableAt(now int64) int64 {
	available := s.AccruedAt(now) - s.Withdrawn
	if available < 0 {
		return 0
	}
	return available
}
