package escrow

// Commitment is a hash-locked promise. Once stored it is immutable except for
// the one-way transition Revealed false → true; the key is never reusable,
// even after reveal.
type Commitment struct {
	Key       Key
	Committer string
	Deposit   int64
	Revealed  bool
}

// DepositPolicy controls what happens to a commitment's deposit when the
// commitment is revealed.
type DepositPolicy string

const (
	// DepositRefund returns the deposit to the committer on reveal.
	DepositRefund DepositPolicy = "refund"
	// DepositForfeit leaves the deposit in the escrow vault.
	DepositForfeit DepositPolicy = "forfeit"
	// DepositToRecipient adds the deposit to the revealed payout.
	DepositToRecipient DepositPolicy = "recipient"
)

// ValidDepositPolicy reports whether p names a supported policy.
func ValidDepositPolicy(p DepositPolicy) bool {
	switch p {
	case DepositRefund, DepositForfeit, DepositToRecipient:
		return true
	default:
		return false
	}
}
