package strategy

import "bourse/internal/exchange"

// Strategy is the decision object driven by an agent loop. Decide is
// called repeatedly; implementations read the account and venue state and
// submit orders through Account.SubmitOrder. Decide must not block
// indefinitely.
type Strategy interface {
	// Name identifies the strategy in configuration and reports.
	Name() string

	// Decide observes the market and may place orders on behalf of the
	// account.
	Decide(acct *exchange.Account, venue *exchange.Venue)
}
