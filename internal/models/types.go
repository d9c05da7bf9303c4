package models

// ContentKind represents the kind of content being watched (movie or series)
type ContentKind string

const (
	KindMovie  ContentKind = "movie"
	KindSeries ContentKind = "series"
)

// Valid reports whether k is a known content kind
func (k ContentKind) Valid() bool {
	return k == KindMovie || k == KindSeries
}

// TransactionType represents what a ledger entry records
type TransactionType string

const (
	TransactionRouletteSpin       TransactionType = "roulette_spin"
	TransactionRouletteWin        TransactionType = "roulette_win"
	TransactionRouletteDeposit    TransactionType = "roulette_deposit"
	TransactionAdminBalanceChange TransactionType = "admin_balance_change"
	TransactionSubscription       TransactionType = "subscription"
	TransactionTrial              TransactionType = "trial"
)

// TransactionStatus represents the state of a ledger entry
type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending" // Waiting for the wallet
	TransactionSuccess TransactionStatus = "success"
	TransactionFailed  TransactionStatus = "failed"
)

// SubscriptionStatus represents the state of a user's subscription
type SubscriptionStatus string

const (
	SubscriptionActive SubscriptionStatus = "active"
)

// NotificationIcon is the icon shown next to a notification
type NotificationIcon string

const (
	IconPlay     NotificationIcon = "play"
	IconStar     NotificationIcon = "star"
	IconDownload NotificationIcon = "download"
	IconBell     NotificationIcon = "bell"
)

// RecipientType selects who receives a notification
type RecipientType string

const (
	RecipientAll  RecipientType = "all"
	RecipientUser RecipientType = "uuid"
)
