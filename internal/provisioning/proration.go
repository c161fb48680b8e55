package provisioning

import (
    "math"
    "time"
)

// CalculateActivationDays converts a partial payment into activated days:
// floor(amountPaid/invoiceTotal * periodDays), floored at one day. Any
// non-zero payment buys at least a day; full payment buys the full
// period. Not capped above periodDays: callers must not pass overpayment
// beyond the invoice total.
//
// A zero payment still yields one day. That matches the billing policy
// this formula was lifted from; reject zero payments upstream if that is
// not wanted.
func CalculateActivationDays(amountPaid, invoiceTotal float64, periodDays int) int {
    if invoiceTotal <= 0 || periodDays <= 0 {
        return 1
    }
    days := int(math.Floor(amountPaid / invoiceTotal * float64(periodDays)))
    if days < 1 {
        return 1
    }
    return days
}

// ActivationExpiry is the service expiry for a payment made now.
func ActivationExpiry(now time.Time, amountPaid, invoiceTotal float64, periodDays int) time.Time {
    return now.AddDate(0, 0, CalculateActivationDays(amountPaid, invoiceTotal, periodDays))
}
