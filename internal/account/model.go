package account

import "time"

// Account is an addressable ledger identity. Its Code is the key the ledger
// tracks balances under, and doubles as the caller identity policy modules see.
type Account struct {
	ID        string
	Owner     string
	Code      string
	Status    string
	CreatedAt time.Time
}

// Balance encapsulates available funds for an account.
type Balance struct {
	AccountID string
	Amount    int64
	AsOf      time.Time
}
