// Package poller asks government endpoints for the verdicts of sent documents
// and for the payment state of QRIS codes.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/edocument"
	"github.com/edocument-exchange/internal/domain/qris"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/edocument_processor/reconciler"
	"github.com/edocument-exchange/internal/transport"
	"github.com/panjf2000/ants/v2"
)

const tickLock = "status-poller"

// StatusSource queries upstream endpoints
type StatusSource interface {
	Status(ctx context.Context, doc *edocument.EDocument) (*reconciler.Verdict, error)
	CheckQR(ctx context.Context, txn *qris.Transaction) (*transport.QRISPayment, error)
}

// Settler applies what the endpoints answered
type Settler interface {
	Apply(ctx context.Context, documentID int64, v reconciler.Verdict) error
	ApplyPayment(ctx context.Context, txn *qris.Transaction, paidBy string) error
	DiscardQR(ctx context.Context, txn *qris.Transaction, reason string) error
}

// Coordinator holds the cooldowns and the tick lock shared by every instance.
type Coordinator interface {
	StartCooldown(ctx context.Context, companyID int64, profile shared.Profile, ttl time.Duration) error
	InCooldown(ctx context.Context, companyID int64, profile shared.Profile) (bool, error)
	Acquire(ctx context.Context, name string, ttl time.Duration) (string, error)
	Release(ctx context.Context, name, token string) error
}

// Summary counts what one tick did.
type Summary struct {
	Locked      bool
	Documents   int
	Settled     int
	Failed      int
	CooledDown  int
	QRPaid      int
	QRDiscarded int
}

type Poller struct {
	documents edocument.Repository
	qris      qris.Repository
	source    StatusSource
	settler   Settler
	throttle  Coordinator
	pool      *ants.Pool
	logger    *slog.Logger
	cfg       config.PollerConfig
	now       func() time.Time

	mu      sync.Mutex
	summary Summary
}

func NewPoller(
	cfg config.PollerConfig,
	workers int,
	documents edocument.Repository,
	qrisRepo qris.Repository,
	source StatusSource,
	settler Settler,
	throttle Coordinator,
	logger *slog.Logger,
) (*Poller, error) {
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &Poller{
		documents: documents,
		qris:      qrisRepo,
		source:    source,
		settler:   settler,
		throttle:  throttle,
		pool:      pool,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start polls on every tick until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Status Poller",
		"poll_interval", p.cfg.PollingInterval.String(),
		"batch_size", p.cfg.BatchSize,
		"workers", p.pool.Cap(),
	)
	ticker := time.NewTicker(p.cfg.PollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Status Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if _, err := p.Tick(ctx); err != nil {
				p.logger.Error("Error during status polling", "error", err)
			}
		}
	}
}

func (p *Poller) Close() {
	p.pool.Release()
}

// Tick runs one polling round when no other instance holds the tick lock.
// Companies are polled concurrently, the documents of one company in order.
func (p *Poller) Tick(ctx context.Context) (Summary, error) {
	token, err := p.throttle.Acquire(ctx, tickLock, p.cfg.TickLockTTL)
	if err != nil {
		return Summary{}, err
	}
	if token == "" {
		p.logger.Debug("Another instance is polling, skipping tick")
		return Summary{}, nil
	}
	defer func() {
		_ = p.throttle.Release(context.WithoutCancel(ctx), tickLock, token)
	}()

	p.mu.Lock()
	p.summary = Summary{Locked: true}
	p.mu.Unlock()

	docs, err := p.documents.ListOutstanding(ctx, p.cfg.BatchSize)
	if err != nil {
		return Summary{}, err
	}

	var order []int64
	byCompany := make(map[int64][]*edocument.EDocument)
	for _, doc := range docs {
		if _, ok := byCompany[doc.CompanyID]; !ok {
			order = append(order, doc.CompanyID)
		}
		byCompany[doc.CompanyID] = append(byCompany[doc.CompanyID], doc)
	}

	var wg sync.WaitGroup
	for _, companyID := range order {
		companyDocs := byCompany[companyID]
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			p.pollCompany(ctx, companyID, companyDocs)
		}); err != nil {
			wg.Done()
			p.logger.Error("Failed to schedule company poll", "company_id", companyID, "error", err)
		}
	}
	wg.Wait()

	p.pollQRIS(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Info("Status poll finished",
		"documents", p.summary.Documents,
		"settled", p.summary.Settled,
		"failed", p.summary.Failed,
		"cooled_down", p.summary.CooledDown,
		"qr_paid", p.summary.QRPaid,
		"qr_discarded", p.summary.QRDiscarded,
	)
	return p.summary, nil
}

func (p *Poller) count(fn func(s *Summary)) {
	p.mu.Lock()
	fn(&p.summary)
	p.mu.Unlock()
}

// cooling reports whether calls to profile are paused for a company. Lookups
// that fail do not block polling.
func (p *Poller) cooling(ctx context.Context, companyID int64, profile shared.Profile) bool {
	paused, err := p.throttle.InCooldown(ctx, companyID, profile)
	if err != nil {
		p.logger.Warn("Failed to read cooldown", "company_id", companyID, "profile", profile, "error", err)
		return false
	}
	return paused
}

func (p *Poller) pollCompany(ctx context.Context, companyID int64, docs []*edocument.EDocument) {
	paused := make(map[shared.Profile]bool)
	for _, doc := range docs {
		if ctx.Err() != nil {
			return
		}
		p.count(func(s *Summary) { s.Documents++ })

		cooled, checked := paused[doc.Profile]
		if !checked {
			cooled = p.cooling(ctx, companyID, doc.Profile)
			paused[doc.Profile] = cooled
		}
		if cooled {
			continue
		}

		if p.pollDocument(ctx, doc) {
			paused[doc.Profile] = true
		}
	}
}

// pollDocument settles one document. It returns true when the endpoint asked
// the company to slow down.
func (p *Poller) pollDocument(ctx context.Context, doc *edocument.EDocument) bool {
	logger := p.logger.With("document_id", doc.ID, "company_id", doc.CompanyID, "profile", doc.Profile)
	if doc.CorrelationID != "" {
		logger = logger.With("correlation_id", doc.CorrelationID)
	}

	verdict, err := p.source.Status(ctx, doc)
	if err != nil {
		switch kind := shared.KindOf(err); kind {
		case shared.KindRateLimit:
			logger.Warn("Upstream rate limit reached, cooling down", "cooldown", p.cfg.RateLimitCooldown)
			if cdErr := p.throttle.StartCooldown(ctx, doc.CompanyID, doc.Profile, p.cfg.RateLimitCooldown); cdErr != nil {
				logger.Error("Failed to start cooldown", "error", cdErr)
			}
			p.count(func(s *Summary) { s.CooledDown++ })
			return true
		case shared.KindTransport, "":
			logger.Warn("Status query failed, will retry", "error", err)
			verdict = &reconciler.Verdict{Outcome: reconciler.OutcomePending, Message: shared.Message(err)}
		default:
			logger.Warn("Status query refused", "kind", kind, "error", err)
			verdict = &reconciler.Verdict{Outcome: reconciler.OutcomeRejected, Message: shared.Message(err)}
		}
	}

	if err := p.settler.Apply(ctx, doc.ID, *verdict); err != nil {
		logger.Error("Failed to apply verdict", "outcome", verdict.Outcome, "error", err)
		p.count(func(s *Summary) { s.Failed++ })
		return false
	}
	if verdict.Outcome == reconciler.OutcomeValidated || verdict.Outcome == reconciler.OutcomeRejected {
		p.count(func(s *Summary) { s.Settled++ })
	}
	return false
}

// pollQRIS registers paid codes and discards codes that expired unpaid.
func (p *Poller) pollQRIS(ctx context.Context) {
	txns, err := p.qris.ListUnpaid(ctx, p.cfg.BatchSize)
	if err != nil {
		p.logger.Error("Failed to list unpaid QR codes", "error", err)
		return
	}

	paused := make(map[int64]bool)
	for _, txn := range txns {
		if ctx.Err() != nil {
			return
		}
		logger := p.logger.With("qris_id", txn.ID, "record_id", txn.RecordID, "invoice_id", txn.InvoiceID)

		cooled, checked := paused[txn.CompanyID]
		if !checked {
			cooled = p.cooling(ctx, txn.CompanyID, shared.ProfileIDQRIS)
			paused[txn.CompanyID] = cooled
		}
		if cooled {
			continue
		}

		payment, err := p.source.CheckQR(ctx, txn)
		if err != nil {
			if shared.IsKind(err, shared.KindRateLimit) {
				if cdErr := p.throttle.StartCooldown(ctx, txn.CompanyID, shared.ProfileIDQRIS, p.cfg.RateLimitCooldown); cdErr != nil {
					logger.Error("Failed to start cooldown", "error", cdErr)
				}
				paused[txn.CompanyID] = true
				p.count(func(s *Summary) { s.CooledDown++ })
				continue
			}
			logger.Warn("Failed to check QR payment", "error", err)
			continue
		}

		switch {
		case payment.Paid:
			if err := p.settler.ApplyPayment(ctx, txn, payment.CustomerName); err != nil {
				logger.Error("Failed to register QR payment", "error", err)
				continue
			}
			p.count(func(s *Summary) { s.QRPaid++ })
		case txn.Expired(p.now(), p.cfg.QRISExpiry):
			if err := p.settler.DiscardQR(ctx, txn, "expired without payment"); err != nil {
				logger.Error("Failed to discard expired QR code", "error", err)
				continue
			}
			p.count(func(s *Summary) { s.QRDiscarded++ })
		}
	}
}
