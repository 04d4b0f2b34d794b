package ledger

import (
	"context"
	"errors"
)

// MessageFor maps a validation error to the user-facing message.
func MessageFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "Amount must be positive."
	case errors.Is(err, ErrSenderNotFound):
		return "Sender not found."
	case errors.Is(err, ErrInsufficientBalance):
		return "Insufficient balance."
	case errors.Is(err, ErrReceiverNotFound):
		return "Receiver account number not found."
	case errors.Is(err, ErrSelfTransfer):
		return "You cannot send money to yourself."
	case errors.Is(err, ErrTransactionNotFound):
		return "Transaction not found."
	default:
		return "Transfer failed."
	}
}

// validateTransfer checks the transfer preconditions in order, stopping at
// the first failure. It has no side effects. On success it returns the
// resolved sender and receiver.
//
// Order matters and is part of the contract: amount, sender existence,
// balance, receiver resolution, self-transfer.
func (s *Service) validateTransfer(ctx context.Context, senderUID, receiverAccountNumber string, amount Cents) (*User, *User, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	sender, err := s.store.FindUserByUID(ctx, senderUID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrSenderNotFound
		}
		return nil, nil, err
	}

	if sender.Balance < amount {
		return nil, nil, ErrInsufficientBalance
	}

	receiver, err := s.store.FindUserByAccountNumber(ctx, receiverAccountNumber)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrReceiverNotFound
		}
		return nil, nil, err
	}

	if sender.UID == receiver.UID {
		return nil, nil, ErrSelfTransfer
	}

	return sender, receiver, nil
}
