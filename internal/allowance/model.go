package allowance

import "fmt"

// Grant is a capped, time-limited right for Spender to move value out of the
// owner's pool. Remaining never goes below zero; a grant whose Expiry is at or
// before the current time is inert regardless of Remaining. Grants are
// overwritten by SetAllowance and decremented by Spend, never deleted.
type Grant struct {
	Owner     string
	Spender   string
	Remaining int64
	Expiry    int64
}

// PoolAccountCode returns the ledger account holding the owner's delegated funds.
func PoolAccountCode(owner string) string {
	return fmt.Sprintf("allowance:pool:%s", owner)
}
