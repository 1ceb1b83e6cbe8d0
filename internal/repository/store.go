package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Store bundles the repositories of one backend. Messages is nil when the
// backend keeps the conversation only in the notes blob.
type Store struct {
	Complaints    ComplaintRepository
	Messages      MessageRepository
	Notifications NotificationRepository
	Quotes        QuoteRepository
	Users         UserDirectory
}

// NewPostgresStore wires every repository to pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return Store{
		Complaints:    NewComplaintRepository(pool),
		Messages:      NewMessageRepository(pool),
		Notifications: NewNotificationRepository(pool),
		Quotes:        NewQuoteRepository(pool),
		Users:         NewUserRepository(pool),
	}
}
