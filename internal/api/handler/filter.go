package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/cuongbtq/interpreter-booking/internal/api/dto"
	"github.com/cuongbtq/interpreter-booking/internal/booking/domain"
)

const filterDateLayout = "2006-01-02"

// toJobFilter converts the listing query into a JobFilter. Dates are read in
// loc; the to bound is widened to the end of its day by the store.
func toJobFilter(req dto.ListJobsRequest, loc *time.Location) (domain.JobFilter, error) {
	f := domain.JobFilter{
		IDs:                 req.IDs,
		LanguageIDs:         req.LanguageIDs,
		CustomerEmails:      req.CustomerEmails,
		TranslatorEmails:    req.TranslatorEmails,
		IgnorePhysical:      req.IgnorePhysical,
		IgnorePhysicalPhone: req.IgnorePhysicalPhone,
		IgnoreFlagged:       req.IgnoreFlagged,
		LowFeedback:         req.LowFeedback,
		ConsumerType:        req.ConsumerType,
		BookingType:         req.BookingType,
		CountOnly:           req.CountOnly,
		Page:                req.Page,
		PageSize:            req.PageSize,
	}

	for _, raw := range req.Statuses {
		st, err := domain.ParseJobStatus(raw)
		if err != nil {
			return f, fmt.Errorf("status: %w", err)
		}
		f.Statuses = append(f.Statuses, st)
	}
	for _, raw := range req.JobTypes {
		f.JobTypes = append(f.JobTypes, domain.JobType(raw))
	}

	var err error
	if f.ExpiredAt, err = parseDate("expired_at", req.ExpiredAt, loc); err != nil {
		return f, err
	}
	if f.WillExpireAt, err = parseDate("will_expire_at", req.WillExpireAt, loc); err != nil {
		return f, err
	}

	if req.TimeType != "" {
		if req.TimeType != domain.TimeTypeCreated && req.TimeType != domain.TimeTypeDue {
			return f, fmt.Errorf("filter_timetype: must be %q or %q", domain.TimeTypeCreated, domain.TimeTypeDue)
		}
		f.TimeType = req.TimeType
		if f.From, err = parseDate("from", req.From, loc); err != nil {
			return f, err
		}
		if f.To, err = parseDate("to", req.To, loc); err != nil {
			return f, err
		}
	}

	if f.Physical, err = parseYesNo("physical", req.Physical); err != nil {
		return f, err
	}
	if f.Phone, err = parseYesNo("phone", req.Phone); err != nil {
		return f, err
	}
	if f.Flagged, err = parseYesNo("flagged", req.Flagged); err != nil {
		return f, err
	}

	return f, nil
}

func parseDate(field, raw string, loc *time.Location) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(filterDateLayout, raw, loc)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: expected YYYY-MM-DD", field)
		}
	}
	return &t, nil
}

func parseYesNo(field, raw string) (*bool, error) {
	var v bool
	switch strings.ToLower(raw) {
	case "":
		return nil, nil
	case "yes", "true", "1":
		v = true
	case "no", "false", "0":
		v = false
	default:
		return nil, fmt.Errorf("%s: expected yes or no", field)
	}
	return &v, nil
}
