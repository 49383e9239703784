// Package eligibility decides which translators may see and accept a job.
//
// Every function here is pure: callers load the job, its customer and the
// candidate pool and pass them in by value.
package eligibility

import (
	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

// Reason explains why a translator was rejected. The zero value means the
// translator is eligible.
type Reason string

const (
	Eligible              Reason = ""
	ReasonNotTranslator   Reason = "not a translator"
	ReasonDisabled        Reason = "translator disabled"
	ReasonCategory        Reason = "translator category does not match job type"
	ReasonLanguage        Reason = "language not spoken"
	ReasonGender          Reason = "gender does not match"
	ReasonLevel           Reason = "certification level does not match"
	ReasonBlacklisted     Reason = "blacklisted by customer"
	ReasonTown            Reason = "not in the customer's town"
	ReasonSpecificBinding Reason = "job is bound to another translator"
)

var certifiedLevels = []string{
	domain.LevelCertified,
	domain.LevelCertifiedLaw,
	domain.LevelCertifiedHealth,
}

// AcceptableLevels derives the translator levels a job accepts from its
// certified requirement. A nil result places no restriction on the level.
func AcceptableLevels(certified string) []string {
	switch certified {
	case "", domain.CertifiedYes, domain.CertifiedBoth:
		return certifiedLevels
	case domain.CertifiedLaw, domain.CertifiedNLaw:
		return []string{domain.LevelCertifiedLaw}
	case domain.CertifiedHealth, domain.CertifiedNHealth:
		return []string{domain.LevelCertifiedHealth}
	}
	return nil
}

// Check evaluates every rule for one translator and returns the first
// failing reason.
func Check(job domain.Job, customer domain.User, t domain.User) Reason {
	if !t.IsTranslator() {
		return ReasonNotTranslator
	}
	if t.Disabled {
		return ReasonDisabled
	}
	if job.SpecificTranslatorID != nil && *job.SpecificTranslatorID != t.ID {
		return ReasonSpecificBinding
	}
	if t.TranslatorType != job.JobType.TranslatorCategory() {
		return ReasonCategory
	}
	if !t.SpeaksLanguage(job.FromLanguageID) {
		return ReasonLanguage
	}
	if job.Gender != "" && job.Gender != t.Gender {
		return ReasonGender
	}
	if levels := AcceptableLevels(job.Certified); levels != nil && !contains(levels, t.TranslatorLevel) {
		return ReasonLevel
	}
	if customer.HasBlacklisted(t.ID) {
		return ReasonBlacklisted
	}
	if job.IsPhysicalOnly() && job.SpecificTranslatorID == nil && !domain.SameTown(customer.City, t.City) {
		return ReasonTown
	}
	return Eligible
}

// IsEligible reports whether the translator passes every rule.
func IsEligible(job domain.Job, customer domain.User, t domain.User) bool {
	return Check(job, customer, t) == Eligible
}

// Filter returns the eligible subset of pool, preserving order. A job bound
// to a specific translator is checked against that translator only.
func Filter(job domain.Job, customer domain.User, pool []domain.User) []domain.User {
	if job.SpecificTranslatorID != nil {
		for _, t := range pool {
			if t.ID == *job.SpecificTranslatorID {
				if IsEligible(job, customer, t) {
					return []domain.User{t}
				}
				return nil
			}
		}
		return nil
	}

	out := make([]domain.User, 0, len(pool))
	for _, t := range pool {
		if IsEligible(job, customer, t) {
			out = append(out, t)
		}
	}
	return out
}

// Exclude drops the translator with the given id from the pool.
func Exclude(pool []domain.User, id int64) []domain.User {
	out := make([]domain.User, 0, len(pool))
	for _, u := range pool {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}

// PotentialJobs is the translator-side view: the pending jobs this
// translator may accept. customers maps job owner ids to their profiles.
func PotentialJobs(t domain.User, jobs []domain.Job, customers map[int64]domain.User) []domain.Job {
	out := make([]domain.Job, 0)
	for _, job := range jobs {
		if job.Status != domain.StatusPending {
			continue
		}
		if IsEligible(job, customers[job.CustomerID], t) {
			out = append(out, job)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
