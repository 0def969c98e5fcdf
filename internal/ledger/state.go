package ledger

import (
	"errors"

	"github.com/gradecraft/backend/internal/models"
	"github.com/gradecraft/backend/internal/money"
)

// ErrInsufficientCredit is returned when the account balance is too low for
// the requested reservation.
var ErrInsufficientCredit = errors.New("insufficient credit")

// The four credit transitions are pure: each returns a new account value and
// never mutates its input, so the "what changed" between old and new is
// mechanical to audit. Persistence wraps them in a row-locked transaction.

// Reserve deducts cost from the spendable balance and marks it in flight.
// On failure the input state is returned unchanged.
func Reserve(acct models.CreditAccount, cost string) (models.CreditAccount, error) {
	if money.Compare(acct.Balance, cost) < 0 {
		return acct, ErrInsufficientCredit
	}
	return models.CreditAccount{
		Balance:  money.Subtract(acct.Balance, cost),
		Reserved: money.Add(acct.Reserved, cost),
	}, nil
}

// Clear settles a reservation as spent. The balance was already deducted at
// reserve time; this only drops the in-flight marker.
func Clear(acct models.CreditAccount, cost string) models.CreditAccount {
	return models.CreditAccount{
		Balance:  acct.Balance,
		Reserved: money.Subtract(acct.Reserved, cost),
	}
}

// Refund settles a reservation as returned, restoring the pre-reservation
// balance.
func Refund(acct models.CreditAccount, cost string) models.CreditAccount {
	return models.CreditAccount{
		Balance:  money.Add(acct.Balance, cost),
		Reserved: money.Subtract(acct.Reserved, cost),
	}
}

// ApplyPurchase adds purchased credit to the spendable balance.
func ApplyPurchase(acct models.CreditAccount, amount string) models.CreditAccount {
	return models.CreditAccount{
		Balance:  money.Add(acct.Balance, amount),
		Reserved: acct.Reserved,
	}
}
