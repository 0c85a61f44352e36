// Package booking drives the purchase of a trainer slot: package choice,
// payment intent, card confirmation and the booking record.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jw6ventures/fitverse/internal/api"
	"github.com/jw6ventures/fitverse/internal/cache"
	"github.com/jw6ventures/fitverse/internal/metrics"
	"github.com/jw6ventures/fitverse/internal/saga"
)

// State is a booking flow state.
type State string

const (
	SelectingPackage    State = "selecting_package"
	AwaitingIntent      State = "awaiting_intent"
	EnteringCardDetails State = "entering_card_details"
	Confirming          State = "confirming"
	Succeeded           State = "succeeded"
	Failed              State = "failed"
	// PaymentUnrecorded is terminal: the charge was captured but the
	// booking record was not written.
	PaymentUnrecorded State = "payment_unrecorded"
)

// Unrecorded is shown when the charge went through but the booking record
// could not be saved.
const Unrecorded = "payment captured, booking not recorded: contact support"

// IntentFailedMessage is shown when no payment intent could be opened.
const IntentFailedMessage = "Failed to initialize payment. Please try again."

var (
	ErrIntentCreationFailed = errors.New("payment intent creation failed")
	ErrPaymentDeclined      = errors.New("payment declined")
	ErrFlowNotFound         = errors.New("booking not found or expired")
	ErrFlowClosed           = errors.New("payment already submitted")
	ErrUnknownPackage       = errors.New("unknown membership package")
)

// DeclineError carries the processor's reason for refusing a charge.
type DeclineError struct {
	Reason string
	Code   string
}

func (e *DeclineError) Error() string { return "payment declined: " + e.Reason }

func (e *DeclineError) Is(target error) bool { return target == ErrPaymentDeclined }

// Backend is the part of the REST API a booking writes to.
type Backend interface {
	CreatePaymentIntent(ctx context.Context, req api.PaymentIntentRequest) (*api.PaymentIntent, error)
	RecordPayment(ctx context.Context, payment api.Payment) error
}

// Processor confirms a payment intent with a card payment method and
// returns the transaction id.
type Processor interface {
	Confirm(ctx context.Context, clientSecret, paymentMethod string) (string, error)
}

// ReceiptSender mails a confirmation for a recorded booking.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, payment api.Payment) error
}

// Payer is the signed-in member paying for the booking.
type Payer struct {
	Email string
	Name  string
}

// Flow is one member's booking of one trainer slot.
type Flow struct {
	ID          string
	Owner       string
	Payer       Payer
	TrainerID   string
	TrainerName string
	Slot        Slot
	CreatedAt   time.Time

	mu            sync.Mutex
	state         State
	pkg           Package
	clientSecret  string
	transactionID string
	notice        string
	history       []State
}

// Snapshot is a consistent copy of a flow for rendering.
type Snapshot struct {
	ID            string
	TrainerID     string
	TrainerName   string
	Slot          Slot
	Package       Package
	State         State
	ClientSecret  string
	TransactionID string
	Notice        string
	History       []State
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	return Snapshot{
		ID:            f.ID,
		TrainerID:     f.TrainerID,
		TrainerName:   f.TrainerName,
		Slot:          f.Slot,
		Package:       f.pkg,
		State:         f.state,
		ClientSecret:  f.clientSecret,
		TransactionID: f.transactionID,
		Notice:        f.notice,
		History:       append([]State(nil), f.history...),
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) moveLocked(to State) {
	slog.Info("payment_event", "flow", f.ID, "from", string(f.state), "to", string(to))
	f.state = to
	f.history = append(f.history, to)
}

// Service runs booking flows.
type Service struct {
	backend        Backend
	processor      Processor
	cache          *cache.Cache
	receipts       ReceiptSender
	flows          *Flows
	catalog        []Package
	confirmTimeout time.Duration
	now            func() time.Time
}

type Option func(*Service)

// WithReceipts mails a receipt after every recorded booking.
func WithReceipts(r ReceiptSender) Option {
	return func(s *Service) { s.receipts = r }
}

// WithCatalog replaces the default package catalog.
func WithCatalog(pkgs []Package) Option {
	return func(s *Service) { s.catalog = pkgs }
}

// WithConfirmTimeout bounds the confirm-and-record sequence.
func WithConfirmTimeout(d time.Duration) Option {
	return func(s *Service) { s.confirmTimeout = d }
}

// WithFlowTTL sets how long an unfinished flow is kept.
func WithFlowTTL(d time.Duration) Option {
	return func(s *Service) { s.flows.ttl = d }
}

func withClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.flows.now = now
	}
}

func NewService(backend Backend, processor Processor, c *cache.Cache, opts ...Option) *Service {
	s := &Service{
		backend:        backend,
		processor:      processor,
		cache:          c,
		flows:          NewFlows(time.Hour),
		catalog:        Packages,
		confirmTimeout: 45 * time.Second,
		now:            time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Catalog lists the packages a member can choose from.
func (s *Service) Catalog() []Package { return s.catalog }

// Start opens a flow for the slot at index on trainer t.
func (s *Service) Start(owner string, payer Payer, t api.Trainer, index int) (*Flow, error) {
	slot, err := TrainerSlot(t, index)
	if err != nil {
		return nil, err
	}
	f := &Flow{
		ID:          uuid.NewString(),
		Owner:       owner,
		Payer:       payer,
		TrainerID:   t.ID,
		TrainerName: t.DisplayName(),
		Slot:        slot,
		CreatedAt:   s.now(),
		state:       SelectingPackage,
		history:     []State{SelectingPackage},
	}
	s.flows.Put(f)
	return f, nil
}

// Flow returns the flow id owned by owner.
func (s *Service) Flow(id, owner string) (*Flow, error) {
	return s.flows.Get(id, owner)
}

// SelectPackage picks a package and opens a payment intent for its price.
// A zero price leaves the flow where it is. When the intent cannot be
// opened the flow stays in SelectingPackage and ErrIntentCreationFailed is
// returned so the member can retry.
func (s *Service) SelectPackage(ctx context.Context, f *Flow, name string) error {
	pkg, ok := lookupPackage(s.catalog, name)
	if !ok {
		return ErrUnknownPackage
	}

	f.mu.Lock()
	switch f.state {
	case SelectingPackage, EnteringCardDetails:
	default:
		f.mu.Unlock()
		return ErrFlowClosed
	}
	if f.state == EnteringCardDetails {
		f.clientSecret = ""
		f.moveLocked(SelectingPackage)
	}
	f.pkg = pkg
	f.notice = ""
	if pkg.Price <= 0 {
		f.mu.Unlock()
		return nil
	}
	f.moveLocked(AwaitingIntent)
	req := api.PaymentIntentRequest{
		Price:     pkg.Price,
		TrainerID: f.TrainerID,
		SlotID:    strconv.Itoa(f.Slot.Index),
		Email:     f.Payer.Email,
	}
	f.mu.Unlock()

	intent, err := s.backend.CreatePaymentIntent(ctx, req)
	if err == nil && intent.ClientSecret == "" {
		err = errors.New("backend returned no client secret")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		slog.Warn("payment_event", "flow", f.ID, "event", "intent_failed", "error", err)
		metrics.PaymentOutcome("intent_failed")
		f.notice = IntentFailedMessage
		f.moveLocked(SelectingPackage)
		return fmt.Errorf("%w: %v", ErrIntentCreationFailed, err)
	}
	f.clientSecret = intent.ClientSecret
	f.moveLocked(EnteringCardDetails)
	return nil
}

// Submit confirms the card payment and records the booking. Without an
// open intent or a payment method it does nothing. The confirmation runs on
// a context detached from ctx, so a caller going away never abandons a
// submitted charge.
func (s *Service) Submit(ctx context.Context, f *Flow, paymentMethod string) (Snapshot, error) {
	f.mu.Lock()
	if f.state != EnteringCardDetails || f.clientSecret == "" || paymentMethod == "" {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		return snap, nil
	}
	f.moveLocked(Confirming)
	f.notice = ""
	secret := f.clientSecret
	payment := api.Payment{
		TrainerID:    f.TrainerID,
		TrainerName:  f.TrainerName,
		SlotID:       strconv.Itoa(f.Slot.Index),
		SelectedDay:  f.Slot.Day,
		SelectedTime: f.Slot.Time,
		PackageName:  f.pkg.Name,
		Amount:       f.pkg.Price,
		Status:       "paid",
		UserEmail:    f.Payer.Email,
		UserName:     f.Payer.Name,
	}
	f.mu.Unlock()

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.confirmTimeout)
	defer cancel()

	err := saga.Run(cctx,
		saga.Step{
			Name: "confirm payment",
			Run: func(ctx context.Context) error {
				tx, err := s.processor.Confirm(ctx, secret, paymentMethod)
				payment.TransactionID = tx
				return err
			},
		},
		saga.Step{
			Name: "record booking",
			Run: func(ctx context.Context) error {
				payment.Date = s.now().UTC().Format(time.RFC3339)
				return s.cache.Write(ctx, func(ctx context.Context) error {
					return s.backend.RecordPayment(ctx, payment)
				}, bookingKeys(payment)...)
			},
			Partial: Unrecorded,
		},
	)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactionID = payment.TransactionID

	if pf, ok := saga.AsPartial(err); ok {
		slog.Error("payment_event", "flow", f.ID, "event", "booking_unrecorded", "transaction", payment.TransactionID, "error", pf.Err)
		metrics.PaymentOutcome("unrecorded")
		f.notice = pf.Message
		f.moveLocked(PaymentUnrecorded)
		return f.snapshotLocked(), err
	}
	if err != nil {
		var decline *DeclineError
		if errors.As(err, &decline) {
			metrics.PaymentOutcome("declined")
			f.notice = decline.Reason
		} else {
			metrics.PaymentOutcome("error")
			f.notice = "The payment could not be processed. Please try again."
		}
		slog.Warn("payment_event", "flow", f.ID, "event", "confirm_failed", "error", err)
		f.moveLocked(Failed)
		f.moveLocked(EnteringCardDetails)
		return f.snapshotLocked(), err
	}

	metrics.PaymentOutcome("succeeded")
	f.moveLocked(Succeeded)
	if s.receipts != nil {
		if rerr := s.receipts.SendReceipt(cctx, payment); rerr != nil {
			slog.Warn("payment_event", "flow", f.ID, "event", "receipt_failed", "error", rerr)
		}
	}
	return f.snapshotLocked(), nil
}

// Finish forgets a flow that reached a terminal state.
func (s *Service) Finish(f *Flow) {
	switch f.State() {
	case Succeeded, PaymentUnrecorded:
		s.flows.Delete(f.ID)
	}
}

func bookingKeys(p api.Payment) []cache.Key {
	return []cache.Key{
		cache.ByEmail(cache.ResBookedTrainers, p.UserEmail),
		cache.K(cache.ResDashboardStats),
		cache.K(cache.ResTrainer, p.TrainerID),
	}
}
