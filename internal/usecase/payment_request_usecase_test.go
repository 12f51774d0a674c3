package usecase_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

func createRequest(t *testing.T, f *fixture, requester, requestee string, amount int64) *domain.PaymentRequest {
	t.Helper()

	req, err := f.requests.Create(context.Background(), usecase.CreatePaymentRequestCommand{
		Requester: requester,
		Requestee: requestee,
		Amount:    amount,
	})
	require.NoError(t, err)
	return req
}

func TestCreatePaymentRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 100)

	req := createRequest(t, f, "vendor", "alice", 40)

	assert.Equal(t, domain.PaymentRequestPending, req.Status)
	assert.Equal(t, "vendor", req.RequesterUsername)
	assert.Equal(t, "alice", req.RequesteeUsername)
	assert.Equal(t, int64(40), req.Amount)

	assert.Equal(t, int64(100), f.store.Balance("alice"))
	assert.Equal(t, int64(0), f.store.Balance("vendor"))
	assert.Empty(t, f.store.TransactionLog())

	events := f.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypePaymentRequestCreated, events[0].EventType)
	assert.Equal(t, "alice", events[0].Recipient())
}

func TestCreatePaymentRequest_Errors(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 100)
	f.store.SeedAccount("bob", domain.RoleStudent, 100)
	f.store.SeedAccount("carol", domain.RoleStudent, 100)
	disable(f.store, "bob")
	disable(f.store, "carol")

	tests := []struct {
		name    string
		cmd     usecase.CreatePaymentRequestCommand
		wantErr error
	}{
		{"unknown requestee", usecase.CreatePaymentRequestCommand{Requester: "vendor", Requestee: "ghost", Amount: 10}, domain.ErrRequesteeNotFound},
		{"disabled requestee", usecase.CreatePaymentRequestCommand{Requester: "vendor", Requestee: "bob", Amount: 10}, domain.ErrRequesteeDisabled},
		{"zero amount", usecase.CreatePaymentRequestCommand{Requester: "vendor", Requestee: "alice", Amount: 0}, domain.ErrInvalidAmount},
		{"self request", usecase.CreatePaymentRequestCommand{Requester: "alice", Requestee: "alice", Amount: 10}, domain.ErrSelfRequest},
		{"disabled requester", usecase.CreatePaymentRequestCommand{Requester: "carol", Requestee: "alice", Amount: 10}, domain.ErrAccountDisabled},
		{"unknown requester", usecase.CreatePaymentRequestCommand{Requester: "ghost", Requestee: "alice", Amount: 10}, domain.ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.requests.Create(context.Background(), tt.cmd)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, f.store.OutboxEvents())
}

func TestCreatePaymentRequest_ChecksRequesteeUnderLock(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 100)

	// alice is disabled just before the create transaction opens.
	f.store.BeginFunc = func(context.Context) error {
		f.store.BeginFunc = nil
		disable(f.store, "alice")
		return nil
	}

	_, err := f.requests.Create(context.Background(), usecase.CreatePaymentRequestCommand{
		Requester: "vendor",
		Requestee: "alice",
		Amount:    10,
	})
	require.ErrorIs(t, err, domain.ErrRequesteeDisabled)
	assert.Empty(t, f.store.OutboxEvents())
}

func TestRespond_AcceptSettles(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 100)
	req := createRequest(t, f, "vendor", "alice", 40)

	got, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{
		RequestID: req.ID,
		Actor:     "alice",
		Decision:  domain.DecisionAccept,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentRequestCompleted, got.Status)
	assert.Equal(t, domain.PaymentRequestCompleted, f.store.Request(req.ID).Status)
	assert.Equal(t, int64(60), f.store.Balance("alice"))
	assert.Equal(t, int64(40), f.store.Balance("vendor"))

	events := f.store.OutboxEvents()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventTypePaymentRequestAccepted, events[1].EventType)
	assert.Equal(t, "vendor", events[1].Recipient())
}

func TestRespond_AcceptRequiresStrictlyGreaterBalance(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 40)
	req := createRequest(t, f, "vendor", "alice", 40)

	_, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{
		RequestID: req.ID,
		Actor:     "alice",
		Decision:  domain.DecisionAccept,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, "Insufficient balance", err.Error())

	assert.Equal(t, domain.PaymentRequestPending, f.store.Request(req.ID).Status)
	assert.Equal(t, int64(40), f.store.Balance("alice"))
	assert.Equal(t, int64(0), f.store.Balance("vendor"))

	// The request stays pending, so it can be accepted once the payer tops up.
	_, err = f.wallet.Adjust(context.Background(), usecase.AdjustWalletCommand{Actor: student("alice"), Amount: 1})
	require.NoError(t, err)

	got, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{
		RequestID: req.ID,
		Actor:     "alice",
		Decision:  domain.DecisionAccept,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRequestCompleted, got.Status)
	assert.Equal(t, int64(1), f.store.Balance("alice"))
	assert.Equal(t, int64(40), f.store.Balance("vendor"))
}

func TestRespond_AcceptRefusesDisabledParties(t *testing.T) {
	tests := []struct {
		name     string
		disabled string
		wantErr  error
	}{
		{"disabled payer", "alice", domain.ErrAccountDisabled},
		{"disabled payee", "vendor", domain.ErrReceiverDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.store.SeedAccount("vendor", domain.RoleVendor, 0)
			f.store.SeedAccount("alice", domain.RoleStudent, 100)
			req := createRequest(t, f, "vendor", "alice", 40)
			disable(f.store, tt.disabled)

			_, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{
				RequestID: req.ID,
				Actor:     "alice",
				Decision:  domain.DecisionAccept,
			})
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, domain.PaymentRequestPending, f.store.Request(req.ID).Status)
			assert.Equal(t, int64(100), f.store.Balance("alice"))
			assert.Equal(t, int64(0), f.store.Balance("vendor"))
			assert.Empty(t, f.store.TransactionLog())
		})
	}
}

func TestRespond_Reject(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 100)
	req := createRequest(t, f, "vendor", "alice", 40)

	got, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{
		RequestID: req.ID,
		Actor:     "alice",
		Decision:  domain.DecisionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRequestRejected, got.Status)
	assert.Equal(t, int64(100), f.store.Balance("alice"))
	assert.Equal(t, int64(0), f.store.Balance("vendor"))

	events := f.store.OutboxEvents()
	assert.Equal(t, domain.EventTypePaymentRequestRejected, events[len(events)-1].EventType)
}

func TestRespond_Errors(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 100)
	req := createRequest(t, f, "vendor", "alice", 40)

	tests := []struct {
		name    string
		cmd     usecase.RespondPaymentRequestCommand
		wantErr error
	}{
		{"unknown decision", usecase.RespondPaymentRequestCommand{RequestID: req.ID, Actor: "alice", Decision: "maybe"}, domain.ErrInvalidDecision},
		{"unknown request", usecase.RespondPaymentRequestCommand{RequestID: "missing", Actor: "alice", Decision: domain.DecisionAccept}, domain.ErrRequestNotFound},
		{"requester cannot respond", usecase.RespondPaymentRequestCommand{RequestID: req.ID, Actor: "vendor", Decision: domain.DecisionAccept}, domain.ErrNotRequestee},
		{"stranger cannot respond", usecase.RespondPaymentRequestCommand{RequestID: req.ID, Actor: "mallory", Decision: domain.DecisionReject}, domain.ErrNotRequestee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.requests.Respond(context.Background(), tt.cmd)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.PaymentRequestPending, f.store.Request(req.ID).Status)
		})
	}
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(domain.ErrNotRequestee))
}

func TestRespond_TerminalStates(t *testing.T) {
	tests := []struct {
		name    string
		resolve func(t *testing.T, f *fixture, id string)
		wantErr error
	}{
		{
			name: "already accepted",
			resolve: func(t *testing.T, f *fixture, id string) {
				_, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{RequestID: id, Actor: "alice", Decision: domain.DecisionAccept})
				require.NoError(t, err)
			},
			wantErr: domain.ErrRequestAlreadyAccepted,
		},
		{
			name: "already rejected",
			resolve: func(t *testing.T, f *fixture, id string) {
				_, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{RequestID: id, Actor: "alice", Decision: domain.DecisionReject})
				require.NoError(t, err)
			},
			wantErr: domain.ErrRequestAlreadyRejected,
		},
		{
			name: "cancelled by requester",
			resolve: func(t *testing.T, f *fixture, id string) {
				_, err := f.requests.Cancel(context.Background(), usecase.CancelPaymentRequestCommand{RequestID: id, Actor: "vendor"})
				require.NoError(t, err)
			},
			wantErr: domain.ErrRequestCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.store.SeedAccount("vendor", domain.RoleVendor, 0)
			f.store.SeedAccount("alice", domain.RoleStudent, 100)
			req := createRequest(t, f, "vendor", "alice", 40)
			tt.resolve(t, f, req.ID)

			aliceBefore, vendorBefore := f.store.Balance("alice"), f.store.Balance("vendor")
			status := f.store.Request(req.ID).Status

			for _, decision := range []domain.Decision{domain.DecisionAccept, domain.DecisionReject} {
				_, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{RequestID: req.ID, Actor: "alice", Decision: decision})
				require.ErrorIs(t, err, tt.wantErr)
			}
			_, err := f.requests.Cancel(context.Background(), usecase.CancelPaymentRequestCommand{RequestID: req.ID, Actor: "vendor"})
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, status, f.store.Request(req.ID).Status)
			assert.Equal(t, aliceBefore, f.store.Balance("alice"))
			assert.Equal(t, vendorBefore, f.store.Balance("vendor"))
		})
	}
}

func TestRespond_RollsBackWhenStatusUpdateFails(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 100)
	req := createRequest(t, f, "vendor", "alice", 40)

	f.store.UpdateStatusFunc = func(string, domain.PaymentRequestStatus) error {
		return errors.New("lock timeout")
	}

	_, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{
		RequestID: req.ID,
		Actor:     "alice",
		Decision:  domain.DecisionAccept,
	})
	require.Error(t, err)

	assert.Equal(t, domain.PaymentRequestPending, f.store.Request(req.ID).Status)
	assert.Equal(t, int64(100), f.store.Balance("alice"))
	assert.Equal(t, int64(0), f.store.Balance("vendor"))
}

func TestRespond_ConcurrentAcceptsSettleOnce(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 1000)
	req := createRequest(t, f, "vendor", "alice", 40)

	const workers = 20
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{
				RequestID: req.ID,
				Actor:     "alice",
				Decision:  domain.DecisionAccept,
			})
			if err == nil {
				succeeded.Add(1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrRequestAlreadyAccepted)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int64(960), f.store.Balance("alice"))
	assert.Equal(t, int64(40), f.store.Balance("vendor"))
}

func TestRespond_AcceptRacingCancelHasOneWinner(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 100)
	req := createRequest(t, f, "vendor", "alice", 40)

	var wg sync.WaitGroup
	var acceptErr, cancelErr error
	start := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-start
		_, acceptErr = f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{RequestID: req.ID, Actor: "alice", Decision: domain.DecisionAccept})
	}()
	go func() {
		defer wg.Done()
		<-start
		_, cancelErr = f.requests.Cancel(context.Background(), usecase.CancelPaymentRequestCommand{RequestID: req.ID, Actor: "vendor"})
	}()
	close(start)
	wg.Wait()

	final := f.store.Request(req.ID).Status
	switch final {
	case domain.PaymentRequestCompleted:
		require.NoError(t, acceptErr)
		require.ErrorIs(t, cancelErr, domain.ErrRequestAlreadyAccepted)
		assert.Equal(t, int64(60), f.store.Balance("alice"))
	case domain.PaymentRequestCancelled:
		require.NoError(t, cancelErr)
		require.ErrorIs(t, acceptErr, domain.ErrRequestCancelled)
		assert.Equal(t, int64(100), f.store.Balance("alice"))
	default:
		t.Fatalf("unexpected final status %s", final)
	}
	assert.Equal(t, int64(100), f.store.TotalBalance())
}

func TestCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 100)
	req := createRequest(t, f, "vendor", "alice", 40)

	_, err := f.requests.Cancel(context.Background(), usecase.CancelPaymentRequestCommand{RequestID: req.ID, Actor: "alice"})
	require.ErrorIs(t, err, domain.ErrNotRequester)

	got, err := f.requests.Cancel(context.Background(), usecase.CancelPaymentRequestCommand{RequestID: req.ID, Actor: "vendor"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRequestCancelled, got.Status)

	events := f.store.OutboxEvents()
	last := events[len(events)-1]
	assert.Equal(t, domain.EventTypePaymentRequestCancelled, last.EventType)
	assert.Equal(t, "alice", last.Recipient())

	_, err = f.requests.Cancel(context.Background(), usecase.CancelPaymentRequestCommand{RequestID: "missing", Actor: "vendor"})
	require.ErrorIs(t, err, domain.ErrRequestNotFound)
}

func TestGetAndListPaymentRequests(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SeedAccount("vendor", domain.RoleVendor, 0)
	f.store.SeedAccount("alice", domain.RoleStudent, 100)
	f.store.SeedAccount("bob", domain.RoleStudent, 100)

	toAlice := createRequest(t, f, "vendor", "alice", 10)
	createRequest(t, f, "vendor", "bob", 20)
	fromAlice := createRequest(t, f, "alice", "bob", 5)

	_, err := f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{RequestID: toAlice.ID, Actor: "alice", Decision: domain.DecisionReject})
	require.NoError(t, err)

	t.Run("get visible to parties and admin", func(t *testing.T) {
		for _, actor := range []domain.Identity{student("vendor"), student("alice"), admin()} {
			got, err := f.requests.Get(context.Background(), actor, toAlice.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.PaymentRequestRejected, got.Status)
		}
		_, err := f.requests.Get(context.Background(), student("bob"), toAlice.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	tests := []struct {
		name       string
		input      usecase.ListPaymentRequestsInput
		wantIDs    []string
		badRequest bool
	}{
		{
			name:    "all directions include terminal requests",
			input:   usecase.ListPaymentRequestsInput{Actor: student("alice")},
			wantIDs: []string{fromAlice.ID, toAlice.ID},
		},
		{
			name:    "incoming",
			input:   usecase.ListPaymentRequestsInput{Actor: student("alice"), Direction: domain.DirectionIncoming},
			wantIDs: []string{toAlice.ID},
		},
		{
			name:    "outgoing",
			input:   usecase.ListPaymentRequestsInput{Actor: student("alice"), Direction: domain.DirectionOutgoing},
			wantIDs: []string{fromAlice.ID},
		},
		{
			name:    "status filter",
			input:   usecase.ListPaymentRequestsInput{Actor: student("alice"), Status: domain.PaymentRequestPending},
			wantIDs: []string{fromAlice.ID},
		},
		{
			name:       "bad direction",
			input:      usecase.ListPaymentRequestsInput{Actor: student("alice"), Direction: "sideways"},
			badRequest: true,
		},
		{
			name:       "bad status",
			input:      usecase.ListPaymentRequestsInput{Actor: student("alice"), Status: "LOST"},
			badRequest: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.requests.List(context.Background(), tt.input)
			if tt.badRequest {
				require.Error(t, err)
				assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))
				return
			}
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

// Money is neither created nor destroyed by any interleaving of transfers,
// requests, and responses, and no balance ever goes negative.
func TestLedger_ConservationUnderRandomOperations(t *testing.T) {
	f := newFixture(t, nil)
	users := []string{"alice", "bob", "carol", "dave"}
	for _, u := range users {
		f.store.SeedAccount(u, domain.RoleStudent, 50)
	}
	total := f.store.TotalBalance()

	rng := rand.New(rand.NewSource(42))
	var pending []string

	for step := 0; step < 300; step++ {
		a := users[rng.Intn(len(users))]
		b := users[rng.Intn(len(users))]
		amount := int64(rng.Intn(60) + 1)

		switch rng.Intn(4) {
		case 0, 1:
			_, _ = f.transfer.Transfer(context.Background(), usecase.TransferCommand{Sender: a, Receiver: b, Amount: amount})
		case 2:
			req, err := f.requests.Create(context.Background(), usecase.CreatePaymentRequestCommand{Requester: a, Requestee: b, Amount: amount})
			if err == nil {
				pending = append(pending, req.ID)
			}
		case 3:
			if len(pending) == 0 {
				continue
			}
			id := pending[rng.Intn(len(pending))]
			req := f.store.Request(id)
			decision := domain.DecisionAccept
			if rng.Intn(3) == 0 {
				decision = domain.DecisionReject
			}
			_, _ = f.requests.Respond(context.Background(), usecase.RespondPaymentRequestCommand{RequestID: id, Actor: req.RequesteeUsername, Decision: decision})
		}

		require.Equal(t, total, f.store.TotalBalance(), "step %d", step)
		for _, u := range users {
			require.GreaterOrEqual(t, f.store.Balance(u), int64(0), "step %d user %s", step, u)
		}
	}
}
