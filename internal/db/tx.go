package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner groups several writes. Repository calls made with the ctx handed to
// fn take part in the same unit of work.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewTxRunner returns a runner backed by MongoDB multi-document transactions
// when useTransactions is set (requires a replica set), and a pass-through
// runner otherwise.
func NewTxRunner(client *mongo.Client, useTransactions bool) TxRunner {
	if useTransactions && client != nil {
		return &mongoTxRunner{client: client}
	}
	return sequentialRunner{}
}

type mongoTxRunner struct {
	client *mongo.Client
}

func (r *mongoTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start MongoDB session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// sequentialRunner runs fn directly. Writes inside fn are applied one after
// another and earlier writes stay in place if a later one fails.
type sequentialRunner struct{}

func (sequentialRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
