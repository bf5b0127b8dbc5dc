package catalogue

import "time"

// ReconcileOffers decides what to do with a candidate offer given the
// product's existing offers.
//
// Only offers of the candidate's seller are considered, and only where the
// offer's company is the candidate's company or unset (global). Offers that
// already ended before today are left alone: they are history. Among the
// still-active ones, an offer identical in code, quantity break, price,
// currency, company and lead time is kept as-is, which makes reapplying the
// same catalogue a no-op. Every other active offer of that seller is
// terminated with date_end = yesterday, so the superseded price stays on
// record without ever overlapping the new one. When no identical offer
// exists, a create is emitted starting today unless the candidate carries
// its own start date.
func ReconcileOffers(candidate OfferVals, existing []Offer, today time.Time) OfferPlan {
	today = truncateDay(today)
	yesterday := today.AddDate(0, 0, -1)

	var plan OfferPlan
	for _, offer := range existing {
		if offer.SellerID != candidate.SellerID {
			continue
		}
		if offer.CompanyID != nil && !sameCompany(offer.CompanyID, candidate.CompanyID) {
			continue
		}
		if offer.DateEnd != nil && offer.DateEnd.Before(today) {
			continue
		}
		if offerMatches(offer, candidate) && plan.KeepID == 0 {
			plan.KeepID = offer.ID
			continue
		}
		plan.Terminate = append(plan.Terminate, OfferTermination{OfferID: offer.ID, DateEnd: yesterday})
	}

	if plan.KeepID == 0 {
		vals := candidate
		if vals.DateStart.IsZero() {
			vals.DateStart = today
		}
		plan.Create = &vals
	}
	return plan
}

// offerMatches reports field identity between an existing offer and a
// candidate: same code, quantity break, price, currency, company and delay.
func offerMatches(offer Offer, candidate OfferVals) bool {
	return offer.ProductCode == candidate.ProductCode &&
		offer.MinQty == candidate.MinQty &&
		offer.Price == candidate.Price &&
		offer.CurrencyID == candidate.CurrencyID &&
		sameCompany(offer.CompanyID, candidate.CompanyID) &&
		offer.Delay == candidate.Delay
}

func sameCompany(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// truncateDay drops the time-of-day component; offer validity is tracked in
// whole calendar days.
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
