package models

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when a key has no record
var ErrNotFound = bolthold.ErrNotFound

// IsNotFound reports whether err means the key has no record
func IsNotFound(err error) bool {
	return errors.Is(err, bolthold.ErrNotFound)
}

// Database wraps the bolthold store. Records are keyed by their logical tree path.
type Database struct {
	store *bolthold.Store
}

// Tx is a read-write store transaction
type Tx struct {
	store *bolthold.Store
	tx    *bbolt.Tx
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Update runs fn in a single read-write transaction. Every write made through
// tx is committed together or not at all.
func (db *Database) Update(fn func(tx *Tx) error) error {
	return db.store.Bolt().Update(func(btx *bbolt.Tx) error {
		return fn(&Tx{store: db.store, tx: btx})
	})
}

// Watch progress operations

// SaveProgress writes a watch record and the user's last-watched pointer in one transaction
func (db *Database) SaveProgress(record *WatchRecord, pointer *LastWatched) error {
	return db.Update(func(tx *Tx) error {
		if err := tx.store.TxUpsert(tx.tx, record.Key, record); err != nil {
			return fmt.Errorf("failed to write watch record: %w", err)
		}
		if err := tx.store.TxUpsert(tx.tx, pointer.Key, pointer); err != nil {
			return fmt.Errorf("failed to write last watched: %w", err)
		}
		return nil
	})
}

// GetWatchRecord retrieves a watch record by key
func (db *Database) GetWatchRecord(key string) (*WatchRecord, error) {
	var record WatchRecord
	if err := db.store.Get(key, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetWatchRecordsByUser retrieves every watch record of a user, newest first
func (db *Database) GetWatchRecordsByUser(userID string) ([]*WatchRecord, error) {
	var records []*WatchRecord
	if err := db.store.Find(&records, bolthold.Where("UserID").Eq(userID).Index("UserID")); err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}

// GetLastWatched retrieves a user's last-watched pointer
func (db *Database) GetLastWatched(userID string) (*LastWatched, error) {
	var pointer LastWatched
	if err := db.store.Get(LastWatchedPath(userID), &pointer); err != nil {
		return nil, err
	}
	return &pointer, nil
}

// Catalog operations

// UpsertShow creates or replaces a show
func (db *Database) UpsertShow(show *Show) error {
	now := time.Now()
	if show.CreatedAt.IsZero() {
		show.CreatedAt = now
	}
	show.UpdatedAt = now
	show.Key = ShowPath(show.ID)
	return db.store.Upsert(show.Key, show)
}

// GetShow retrieves a show by ID
func (db *Database) GetShow(showID string) (*Show, error) {
	var show Show
	if err := db.store.Get(ShowPath(showID), &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// GetAllShows retrieves every show
func (db *Database) GetAllShows() ([]*Show, error) {
	var shows []*Show
	err := db.store.Find(&shows, nil)
	return shows, err
}

// UpsertMovie creates or replaces a movie
func (db *Database) UpsertMovie(movie *Movie) error {
	now := time.Now()
	if movie.CreatedAt.IsZero() {
		movie.CreatedAt = now
	}
	movie.UpdatedAt = now
	movie.Key = MoviePath(movie.ID)
	return db.store.Upsert(movie.Key, movie)
}

// GetMovie retrieves a movie by ID
func (db *Database) GetMovie(movieID string) (*Movie, error) {
	var movie Movie
	if err := db.store.Get(MoviePath(movieID), &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// GetAllMovies retrieves every movie
func (db *Database) GetAllMovies() ([]*Movie, error) {
	var movies []*Movie
	err := db.store.Find(&movies, nil)
	return movies, err
}

// Account operations

// GetAccount retrieves a user's account
func (db *Database) GetAccount(userID string) (*Account, error) {
	var account Account
	if err := db.store.Get(AccountPath(userID), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpsertAccount creates or replaces a user's account
func (db *Database) UpsertAccount(account *Account) error {
	return db.Update(func(tx *Tx) error {
		return tx.UpsertAccount(account)
	})
}

// GetAllAccounts retrieves every account
func (db *Database) GetAllAccounts() ([]*Account, error) {
	var accounts []*Account
	err := db.store.Find(&accounts, nil)
	return accounts, err
}

// GetAccountsSubscribedToShow retrieves the accounts that follow a show
func (db *Database) GetAccountsSubscribedToShow(showID string) ([]*Account, error) {
	accounts, err := db.GetAllAccounts()
	if err != nil {
		return nil, err
	}

	var subscribed []*Account
	for _, account := range accounts {
		if account.ShowSubscriptions[showID] {
			subscribed = append(subscribed, account)
		}
	}
	return subscribed, nil
}

// Transaction operations

// InsertTransaction appends a ledger entry
func (db *Database) InsertTransaction(t *Transaction) error {
	return db.Update(func(tx *Tx) error {
		return tx.InsertTransaction(t)
	})
}

// UpdateTransaction rewrites an existing ledger entry
func (db *Database) UpdateTransaction(t *Transaction) error {
	t.Key = TransactionPath(t.UserID, t.ID)
	return db.store.Update(t.Key, t)
}

// GetTransactionsByUser retrieves a user's ledger, newest first
func (db *Database) GetTransactionsByUser(userID string) ([]*Transaction, error) {
	var transactions []*Transaction
	if err := db.store.Find(&transactions, bolthold.Where("UserID").Eq(userID).Index("UserID")); err != nil {
		return nil, err
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].CreatedAt.After(transactions[j].CreatedAt)
	})
	return transactions, nil
}

// GetAllWinners retrieves every one-time reward winner
func (db *Database) GetAllWinners() ([]*Winner, error) {
	var winners []*Winner
	err := db.store.Find(&winners, nil)
	return winners, err
}

// Notification operations

// InsertNotification stores a notification
func (db *Database) InsertNotification(n *Notification) error {
	n.Key = NotificationPath(n.ID)
	return db.store.Insert(n.Key, n)
}

// GetNotificationsForUser retrieves notifications addressed to a user or to everyone, newest first
func (db *Database) GetNotificationsForUser(userID string) ([]*Notification, error) {
	var notifications []*Notification
	query := bolthold.Where("Recipient").Eq(userID).And("RecipientType").Eq(RecipientUser).
		Or(bolthold.Where("RecipientType").Eq(RecipientAll))
	if err := db.store.Find(&notifications, query); err != nil {
		return nil, err
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

// GetEpisodeCheck retrieves the new-episode high-water mark of a show
func (db *Database) GetEpisodeCheck(showID string) (*EpisodeCheck, error) {
	var check EpisodeCheck
	if err := db.store.Get(EpisodeCheckPath(showID), &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// UpsertEpisodeCheck stores the new-episode high-water mark of a show
func (db *Database) UpsertEpisodeCheck(check *EpisodeCheck) error {
	check.Key = EpisodeCheckPath(check.ShowID)
	return db.store.Upsert(check.Key, check)
}

// GetEpisodeCheckStatus retrieves the status of the new-episode check service
func (db *Database) GetEpisodeCheckStatus() (*EpisodeCheckStatus, error) {
	var status EpisodeCheckStatus
	if err := db.store.Get(EpisodeCheckStatusPath, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UpsertEpisodeCheckStatus stores the status of the new-episode check service
func (db *Database) UpsertEpisodeCheckStatus(status *EpisodeCheckStatus) error {
	status.Key = EpisodeCheckStatusPath
	return db.store.Upsert(status.Key, status)
}

// GetRouletteSettings retrieves the roulette schedule
func (db *Database) GetRouletteSettings() (*RouletteSettings, error) {
	var settings RouletteSettings
	if err := db.store.Get(RouletteSettingsPath, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertRouletteSettings stores the roulette schedule
func (db *Database) UpsertRouletteSettings(settings *RouletteSettings) error {
	settings.Key = RouletteSettingsPath
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now()
	}
	return db.store.Upsert(settings.Key, settings)
}

// Transactional operations

// GetAccount retrieves a user's account inside the transaction
func (tx *Tx) GetAccount(userID string) (*Account, error) {
	var account Account
	if err := tx.store.TxGet(tx.tx, AccountPath(userID), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpsertAccount creates or replaces a user's account inside the transaction
func (tx *Tx) UpsertAccount(account *Account) error {
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	account.Key = AccountPath(account.UserID)
	return tx.store.TxUpsert(tx.tx, account.Key, account)
}

// InsertTransaction appends a ledger entry inside the transaction
func (tx *Tx) InsertTransaction(t *Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.Key = TransactionPath(t.UserID, t.ID)
	return tx.store.TxInsert(tx.tx, t.Key, t)
}

// UpdateTransaction rewrites an existing ledger entry inside the transaction
func (tx *Tx) UpdateTransaction(t *Transaction) error {
	t.Key = TransactionPath(t.UserID, t.ID)
	return tx.store.TxUpdate(tx.tx, t.Key, t)
}

// GetRouletteSettings retrieves the roulette schedule inside the transaction
func (tx *Tx) GetRouletteSettings() (*RouletteSettings, error) {
	var settings RouletteSettings
	if err := tx.store.TxGet(tx.tx, RouletteSettingsPath, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// InsertWinner records a one-time reward winner inside the transaction
func (tx *Tx) InsertWinner(w *Winner) error {
	return tx.store.TxInsert(tx.tx, w.Key, w)
}
