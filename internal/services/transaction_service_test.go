package services

import (
	"context"
	"errors"
	"testing"

	"dealtrack/internal/core"
	"dealtrack/internal/notify"
)

type fakeRepo struct {
	txns    map[string]core.Transaction
	nextID  int
	failAll bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{txns: make(map[string]core.Transaction)}
}

var errRepoDown = errors.New("repo down")

func (f *fakeRepo) Create(_ context.Context, userID string, p core.Payload) (core.Transaction, error) {
	if f.failAll {
		return core.Transaction{}, errRepoDown
	}
	f.nextID++
	txn := core.Transaction{
		ID:      string(rune('a' + f.nextID - 1)),
		UserID:  userID,
		Type:    core.TransactionType(p["type"].(string)),
		Version: 1,
	}
	f.txns[txn.ID] = txn
	return txn, nil
}

func (f *fakeRepo) Update(_ context.Context, userID, id string, p core.Payload) (core.Transaction, error) {
	txn, ok := f.txns[id]
	if !ok || txn.UserID != userID {
		return core.Transaction{}, errors.New("not found")
	}
	txn.Version++
	f.txns[id] = txn
	return txn, nil
}

func (f *fakeRepo) Get(_ context.Context, userID, id string) (core.Transaction, error) {
	txn, ok := f.txns[id]
	if !ok || txn.UserID != userID {
		return core.Transaction{}, errors.New("not found")
	}
	return txn, nil
}

func (f *fakeRepo) List(_ context.Context, userID string, status core.TransactionStatus) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, txn := range f.txns {
		if txn.UserID != userID {
			continue
		}
		if status != "" && txn.Status != status {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

func (f *fakeRepo) Delete(_ context.Context, userID, id string) error {
	txn, ok := f.txns[id]
	if !ok || txn.UserID != userID {
		return errors.New("not found")
	}
	delete(f.txns, id)
	return nil
}

type fakePublisher struct {
	published []string // "<id>:<action>"
	err       error
	closed    bool
}

func (f *fakePublisher) PublishTransactionChanged(_ context.Context, id, action string, _ int64) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id+":"+action)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func TestCreatePublishesChange(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub)

	txn, err := svc.Create(context.Background(), "user-1", core.Payload{"type": "buyer"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0] != txn.ID+":"+notify.ActionCreated {
		t.Fatalf("published = %v", pub.published)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewTransactionService(repo, pub)

	txn, err := svc.Create(context.Background(), "user-1", core.Payload{"type": "buyer"})
	if err != nil {
		t.Fatalf("create should succeed despite publish failure: %v", err)
	}
	if _, err := repo.Get(context.Background(), "user-1", txn.ID); err != nil {
		t.Fatalf("transaction not persisted: %v", err)
	}
}

func TestNilPublisherIsSkipped(t *testing.T) {
	svc := NewTransactionService(newFakeRepo(), nil)

	if _, err := svc.Create(context.Background(), "user-1", core.Payload{"type": "seller"}); err != nil {
		t.Fatalf("create with nil publisher: %v", err)
	}
}

func TestStorageFailureDoesNotPublish(t *testing.T) {
	repo := newFakeRepo()
	repo.failAll = true
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub)

	if _, err := svc.Create(context.Background(), "user-1", core.Payload{"type": "buyer"}); !errors.Is(err, errRepoDown) {
		t.Fatalf("err = %v, want repo error", err)
	}
	if len(pub.published) != 0 {
		t.Fatalf("published despite storage failure: %v", pub.published)
	}
}

func TestDeletePublishesWithLastVersion(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub)

	txn, err := svc.Create(context.Background(), "user-1", core.Payload{"type": "buyer"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), "user-1", txn.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	want := txn.ID + ":" + notify.ActionDeleted
	if pub.published[len(pub.published)-1] != want {
		t.Fatalf("last published = %v, want %v", pub.published[len(pub.published)-1], want)
	}
}

func TestCloseClosesPublisher(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewTransactionService(newFakeRepo(), pub)

	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !pub.closed {
		t.Fatal("publisher not closed")
	}
}
