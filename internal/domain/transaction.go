package domain

import "time"

// Transaction is an immutable record of one completed transfer. Only the tag
// lists change after creation, each by its own party.
type Transaction struct {
	ID               string
	SenderUsername   string
	ReceiverUsername string
	Amount           int64
	Status           bool
	SenderTags       []string
	ReceiverTags     []string
	CreatedAt        time.Time
}

// Involves reports whether username is the sender or the receiver.
func (t *Transaction) Involves(username string) bool {
	return t.SenderUsername == username || t.ReceiverUsername == username
}

// Counterparty returns the other side of the transaction as seen by username.
func (t *Transaction) Counterparty(username string) string {
	if t.SenderUsername == username {
		return t.ReceiverUsername
	}
	return t.SenderUsername
}

// TagSide identifies which party's tag list is being edited.
type TagSide string

const (
	TagSideSender   TagSide = "sender"
	TagSideReceiver TagSide = "receiver"
)

// TagSideFor returns the tag list username may edit on t.
func (t *Transaction) TagSideFor(username string) (TagSide, error) {
	switch username {
	case t.SenderUsername:
		return TagSideSender, nil
	case t.ReceiverUsername:
		return TagSideReceiver, nil
	default:
		return "", ErrNotTransactionParty
	}
}
