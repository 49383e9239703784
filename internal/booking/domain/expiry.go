package domain

import "time"

// ExpiryPolicy decides how long a pending booking stays open for translators.
type ExpiryPolicy struct {
	// Bookings due within UrgentLead expire at their due time.
	UrgentLead time.Duration `yaml:"urgent_lead"`
	// Bookings due within ShortLead expire ShortGrace after creation.
	ShortLead  time.Duration `yaml:"short_lead"`
	ShortGrace time.Duration `yaml:"short_grace"`
	// Bookings due within MediumLead expire MediumGrace after creation.
	MediumLead  time.Duration `yaml:"medium_lead"`
	MediumGrace time.Duration `yaml:"medium_grace"`
	// Anything further out expires LongNotice before the due time.
	LongNotice time.Duration `yaml:"long_notice"`
}

// DefaultExpiryPolicy returns the production expiry windows.
func DefaultExpiryPolicy() ExpiryPolicy {
	return ExpiryPolicy{
		UrgentLead:  90 * time.Minute,
		ShortLead:   24 * time.Hour,
		ShortGrace:  90 * time.Minute,
		MediumLead:  72 * time.Hour,
		MediumGrace: 16 * time.Hour,
		LongNotice:  48 * time.Hour,
	}
}

// WillExpireAt computes will_expire_at for a booking created at createdAt.
func (p ExpiryPolicy) WillExpireAt(due, createdAt time.Time) time.Time {
	lead := due.Sub(createdAt)
	switch {
	case lead <= p.UrgentLead:
		return due
	case lead <= p.ShortLead:
		return createdAt.Add(p.ShortGrace)
	case lead <= p.MediumLead:
		return createdAt.Add(p.MediumGrace)
	default:
		return due.Add(-p.LongNotice)
	}
}
