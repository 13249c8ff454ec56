// Package aggregator keeps the aggregation flows of the periodic reports in step
// with the records they cover.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/edocument-exchange/internal/config"
	"github.com/edocument-exchange/internal/domain/company"
	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/edocument-exchange/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// Result counts what a synchronization did to the flows.
type Result struct {
	Created int
	Updated int
	Deleted int
	Skipped int
}

func (r *Result) add(o Result) {
	r.Created += o.Created
	r.Updated += o.Updated
	r.Deleted += o.Deleted
	r.Skipped += o.Skipped
}

// Aggregator groups eligible records into flows per key and batch.
type Aggregator struct {
	logger     *slog.Logger
	uow        persistence.UnitOfWork
	records    record.Repository
	flows      flow.Repository
	companies  company.Repository
	maxRecords int
	now        func() time.Time
}

func NewAggregator(
	logger *slog.Logger,
	uow persistence.UnitOfWork,
	records record.Repository,
	flows flow.Repository,
	companies company.Repository,
	cfg config.AggregatorConfig,
) *Aggregator {
	return &Aggregator{
		logger:     logger,
		uow:        uow,
		records:    records,
		flows:      flows,
		companies:  companies,
		maxRecords: cfg.MaxRecordsPerFlow,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Start synchronizes every company on each tick until ctx is canceled.
func (a *Aggregator) Start(ctx context.Context, interval time.Duration) {
	a.logger.Info("Starting Aggregator", "sync_interval", interval.String(), "max_records_per_flow", a.maxRecords)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Aggregator stopping due to context cancellation.")
			return
		case <-ticker.C:
			if _, err := a.SyncAll(ctx, a.now()); err != nil {
				a.logger.Error("Error during flow synchronization", "error", err)
			}
		}
	}
}

// SyncAll synchronizes the aggregated profiles of every company holding records.
// A failing company is logged and skipped.
func (a *Aggregator) SyncAll(ctx context.Context, at time.Time) (Result, error) {
	var total Result
	companies, err := a.records.ListCompanies(ctx)
	if err != nil {
		return total, fmt.Errorf("failed to list companies: %w", err)
	}
	for _, companyID := range companies {
		for _, profile := range shared.Profiles {
			if !profile.IsAggregated() {
				continue
			}
			res, err := a.Sync(ctx, companyID, profile, at)
			if err != nil {
				a.logger.Error("Failed to synchronize flows", "company_id", companyID, "profile", profile, "error", err)
				continue
			}
			total.add(res)
		}
	}
	return total, nil
}

// Sync synchronizes the flows of the period containing at and of the period
// before it, for transactions and, for JPK, for cash-method payments.
func (a *Aggregator) Sync(ctx context.Context, companyID int64, profile shared.Profile, at time.Time) (Result, error) {
	var total Result
	if !profile.IsAggregated() {
		return total, shared.NewError(shared.KindConfiguration, fmt.Sprintf("profile %s does not aggregate records", profile), nil)
	}
	settings, err := a.companies.Get(ctx, companyID)
	if err != nil {
		return total, fmt.Errorf("failed to get company settings: %w", err)
	}

	kinds := []flow.Kind{flow.KindTransaction}
	if profile == shared.ProfilePLJPK {
		kinds = append(kinds, flow.KindPayment)
	}
	for _, kind := range kinds {
		periodicity, err := settings.PeriodicityFor(profile, kind)
		if err != nil {
			return total, err
		}
		current, err := PeriodOf(periodicity, at)
		if err != nil {
			return total, err
		}
		for _, period := range []Period{current.Previous(periodicity), current} {
			res, err := a.SyncPeriod(ctx, companyID, profile, kind, periodicity, period)
			if err != nil {
				return total, err
			}
			total.add(res)
		}
	}
	return total, nil
}

// SyncPeriod rebuilds the open flows of one period in a single transaction.
func (a *Aggregator) SyncPeriod(
	ctx context.Context,
	companyID int64,
	profile shared.Profile,
	kind flow.Kind,
	periodicity flow.Periodicity,
	period Period,
) (Result, error) {
	log := a.logger.With("company_id", companyID, "profile", profile, "kind", kind, "period", period.String())
	var res Result

	err := a.uow.ExecuteTx(ctx, func(tx pgx.Tx) error {
		records := a.records.WithTx(tx)
		flows := a.flows.WithTx(tx)

		var (
			recs []*record.SourceRecord
			err  error
		)
		if kind == flow.KindPayment {
			recs, err = records.ListPaid(ctx, companyID, profile, period.Start, period.End)
		} else {
			recs, err = records.ListEligible(ctx, companyID, profile, period.Start, period.End)
		}
		if err != nil {
			return err
		}
		existing, err := flows.ListByPeriod(ctx, companyID, profile, kind, period.Start, period.End)
		if err != nil {
			return err
		}

		byCurrency := map[string][]*record.SourceRecord{}
		for _, rec := range recs {
			byCurrency[rec.Currency] = append(byCurrency[rec.Currency], rec)
		}

		keys := map[flow.Key][]*record.SourceRecord{}
		for currency, group := range byCurrency {
			keys[flow.Key{
				CompanyID:   companyID,
				Profile:     profile,
				Kind:        kind,
				PeriodStart: period.Start,
				PeriodEnd:   period.End,
				Periodicity: periodicity,
				Currency:    currency,
				Scope:       scopeOf(group),
			}] = group
		}

		open := map[flow.Key][]*flow.Flow{}
		reported := map[string][]*flow.Flow{}
		for _, f := range existing {
			if !f.PeriodStart.Equal(period.Start) || !f.PeriodEnd.Equal(period.End) || f.Periodicity != periodicity {
				continue
			}
			switch {
			case f.State == flow.StateSent || f.State == flow.StateValidated:
				reported[f.Currency] = append(reported[f.Currency], f)
			case f.ReferenceID != nil:
				// amendments of a sent flow are driven by their own request
			default:
				open[f.Key()] = append(open[f.Key()], f)
				if _, ok := keys[f.Key()]; !ok {
					keys[f.Key()] = nil
				}
			}
		}
		for _, sent := range reported {
			sort.Slice(sent, func(i, j int) bool {
				if !sent[i].CreatedAt.Equal(sent[j].CreatedAt) {
					return sent[i].CreatedAt.Before(sent[j].CreatedAt)
				}
				return sent[i].ID < sent[j].ID
			})
		}

		for _, key := range sortedKeys(keys) {
			r, err := a.syncKey(ctx, flows, key, keys[key], open[key], reported[key.Currency])
			if err != nil {
				return err
			}
			res.add(r)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to synchronize flows", "error", err)
		return Result{}, fmt.Errorf("failed to synchronize flows of %s: %w", period, err)
	}

	log.Info("Flows synchronized", "created", res.Created, "updated", res.Updated, "deleted", res.Deleted, "skipped", res.Skipped)
	return res, nil
}

func (a *Aggregator) syncKey(
	ctx context.Context,
	flows flow.Repository,
	key flow.Key,
	recs []*record.SourceRecord,
	open []*flow.Flow,
	reported []*flow.Flow,
) (Result, error) {
	var res Result
	now := a.now()

	slots := map[int]*flow.Flow{}
	for _, f := range open {
		slots[f.Batch] = f
	}

	batches, err := a.split(recs)
	if err != nil {
		return res, err
	}
	for i, batch := range batches {
		f := slots[i]
		delete(slots, i)

		tt, prior, skip := transmission(batch, reported)
		if skip {
			res.Skipped++
			if f != nil {
				r, err := discard(ctx, flows, f, now)
				if err != nil {
					return res, err
				}
				res.add(r)
			}
			continue
		}

		reference := ""
		if prior != nil {
			reference = prior.Handle()
		}
		if f == nil {
			f = flow.New(key, now)
			f.Batch = i
			apply(f, batch, tt, reference)
			if err := flows.Create(ctx, f); err != nil {
				return res, err
			}
			res.Created++
			continue
		}
		if sameContent(f, batch) && f.TransmissionType == tt && f.Reference == reference {
			continue
		}
		apply(f, batch, tt, reference)
		f.State = flow.StateDraft
		f.Message = ""
		f.UpdatedAt = now
		if err := flows.Update(ctx, f); err != nil {
			return res, err
		}
		res.Updated++
	}

	leftover := make([]int, 0, len(slots))
	for slot := range slots {
		leftover = append(leftover, slot)
	}
	sort.Ints(leftover)
	for _, slot := range leftover {
		r, err := discard(ctx, flows, slots[slot], now)
		if err != nil {
			return res, err
		}
		res.add(r)
	}
	return res, nil
}

// split cuts recs, ordered by id, into the fewest equal contiguous batches of at
// most maxRecords records.
func (a *Aggregator) split(recs []*record.SourceRecord) ([]map[int64]string, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	sorted := make([]*record.SourceRecord, len(recs))
	copy(sorted, recs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	n := (len(sorted) + a.maxRecords - 1) / a.maxRecords
	size := (len(sorted) + n - 1) / n
	var batches []map[int64]string
	for start := 0; start < len(sorted); start += size {
		end := min(start+size, len(sorted))
		fps, err := fingerprints(sorted[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to fingerprint records: %w", err)
		}
		batches = append(batches, fps)
	}
	return batches, nil
}

// transmission picks the transmission type of a batch against the flows of the
// same report already sent, ordered oldest first. The prior flow is the latest
// one sharing a record with the batch.
func transmission(batch map[int64]string, reported []*flow.Flow) (shared.TransmissionType, *flow.Flow, bool) {
	var prior *flow.Flow
	for _, f := range reported {
		if overlaps(f, batch) {
			prior = f
		}
	}
	switch {
	case prior != nil && sameContent(prior, batch):
		return "", prior, true
	case prior != nil:
		return shared.TransmissionModification, prior, false
	case len(reported) > 0:
		return shared.TransmissionComplement, nil, false
	}
	return shared.TransmissionInitial, nil, false
}

func apply(f *flow.Flow, batch map[int64]string, tt shared.TransmissionType, reference string) {
	f.SetRecords(batch)
	f.TransmissionType = tt
	f.IsCorrection = tt == shared.TransmissionModification
	f.Reference = reference
}

// discard deletes an open flow left without records. Only drafts can be
// deleted, so a flow past draft is emptied and reset in the same transaction.
func discard(ctx context.Context, flows flow.Repository, f *flow.Flow, now time.Time) (Result, error) {
	if f.State != flow.StateDraft {
		f.SetRecords(nil)
		f.State = flow.StateDraft
		f.Message = ""
		f.UpdatedAt = now
		if err := flows.Update(ctx, f); err != nil {
			return Result{}, err
		}
	}
	if err := flows.Delete(ctx, f.ID); err != nil {
		return Result{}, err
	}
	return Result{Deleted: 1}, nil
}

// scopeOf classifies a group of records. A group is b2c when no partner is a
// company, international when every partner is abroad, and mixed otherwise.
func scopeOf(recs []*record.SourceRecord) flow.Scope {
	b2c, international := true, true
	for _, rec := range recs {
		if rec.Partner.IsCompany {
			b2c = false
		}
		if rec.Partner.CountryCode == "" || rec.Partner.CountryCode == rec.Company.CountryCode {
			international = false
		}
	}
	switch {
	case b2c:
		return flow.ScopeB2C
	case international:
		return flow.ScopeInternational
	}
	return flow.ScopeMixed
}

func sortedKeys(keys map[flow.Key][]*record.SourceRecord) []flow.Key {
	out := make([]flow.Key, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Currency != out[j].Currency {
			return out[i].Currency < out[j].Currency
		}
		return out[i].Scope < out[j].Scope
	})
	return out
}

// Amend prepares the flows correcting a sent flow and returns the open flows to
// send. A stock flow is corrected by a modification flow over the same records
// referencing it. Other reports are corrected by synchronizing their period
// again, which turns the changed batches into modification or complement flows.
func (a *Aggregator) Amend(ctx context.Context, flowID int64) ([]*flow.Flow, error) {
	prior, err := a.flows.GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if prior.State != flow.StateSent && prior.State != flow.StateValidated {
		return nil, shared.NewError(shared.KindConfiguration,
			fmt.Sprintf("flow %d is %s; only sent flows are amended", prior.ID, prior.State), nil)
	}
	if prior.Profile.IsStock() {
		return a.amendStock(ctx, prior.ID)
	}

	period := Period{Start: prior.PeriodStart, End: prior.PeriodEnd}
	if _, err := a.SyncPeriod(ctx, prior.CompanyID, prior.Profile, prior.Kind, prior.Periodicity, period); err != nil {
		return nil, err
	}
	existing, err := a.flows.ListByPeriod(ctx, prior.CompanyID, prior.Profile, prior.Kind, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	var pending []*flow.Flow
	for _, f := range existing {
		if f.State.IsOpen() && f.ReferenceID == nil && f.Currency == prior.Currency &&
			f.Periodicity == prior.Periodicity && f.PeriodEnd.Equal(prior.PeriodEnd) && len(f.RecordIDs) > 0 {
			pending = append(pending, f)
		}
	}
	if len(pending) == 0 {
		return nil, shared.NewError(shared.KindConfiguration,
			fmt.Sprintf("flow %d has no changes to amend", prior.ID), nil)
	}
	return pending, nil
}

func (a *Aggregator) amendStock(ctx context.Context, priorID int64) ([]*flow.Flow, error) {
	amendment, err := a.derive(ctx, priorID, shared.TransmissionModification)
	if err != nil {
		return nil, err
	}
	return []*flow.Flow{amendment}, nil
}

// Rectify prepares the flow replacing a sent periodic report as a whole. It
// carries the records of the sent flow as they are now and points at the latest
// report sent for the same batch, which may itself be a correction. Shipment
// declarations are corrected through Amend only.
func (a *Aggregator) Rectify(ctx context.Context, flowID int64) (*flow.Flow, error) {
	prior, err := a.flows.GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}
	switch {
	case prior.State != flow.StateSent && prior.State != flow.StateValidated:
		return nil, shared.NewError(shared.KindConfiguration,
			fmt.Sprintf("flow %d is %s; only sent flows are rectified", prior.ID, prior.State), nil)
	case prior.Profile.IsStock():
		return nil, shared.NewError(shared.KindConfiguration,
			fmt.Sprintf("flow %d is a shipment declaration; amend it instead", prior.ID), nil)
	}
	return a.derive(ctx, prior.ID, shared.TransmissionRectification)
}

// derive creates or refreshes the open correction of type tt for a sent flow.
func (a *Aggregator) derive(ctx context.Context, priorID int64, tt shared.TransmissionType) (*flow.Flow, error) {
	var derived *flow.Flow
	err := a.uow.ExecuteTx(ctx, func(tx pgx.Tx) error {
		flows := a.flows.WithTx(tx)
		records := a.records.WithTx(tx)

		prior, err := flows.LockForUpdate(ctx, priorID)
		if err != nil {
			return err
		}
		recs := make([]*record.SourceRecord, 0, len(prior.RecordIDs))
		for _, id := range prior.RecordIDs {
			rec, err := records.GetByID(ctx, id)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		fps, err := fingerprints(recs)
		if err != nil {
			return fmt.Errorf("failed to fingerprint records: %w", err)
		}

		siblings, err := flows.ListByKey(ctx, prior.Key())
		if err != nil {
			return err
		}
		reference := prior
		if tt == shared.TransmissionRectification {
			reference = latestSent(prior, siblings)
		}
		for _, f := range siblings {
			if f.ReferenceID != nil && *f.ReferenceID == reference.ID && f.TransmissionType == tt && f.State.IsOpen() {
				derived = f
			}
		}
		now := a.now()
		if derived == nil {
			derived = flow.New(prior.Key(), now)
			derived.Batch = prior.Batch
		}
		apply(derived, fps, tt, reference.Handle())
		derived.IsCorrection = true
		derived.ReferenceID = &reference.ID
		derived.State = flow.StateDraft
		derived.Message = ""
		derived.UpdatedAt = now
		if derived.ID == 0 {
			return flows.Create(ctx, derived)
		}
		return flows.Update(ctx, derived)
	})
	if err != nil {
		a.logger.Error("Failed to prepare flow correction", "flow_id", priorID, "transmission_type", tt, "error", err)
		return nil, fmt.Errorf("failed to prepare %s correction of flow %d: %w", tt, priorID, err)
	}
	a.logger.Info("Flow correction prepared", "flow_id", priorID, "transmission_type", tt, "correction_id", derived.ID)
	return derived, nil
}

// latestSent returns the newest sent or validated flow of prior's batch.
func latestSent(prior *flow.Flow, siblings []*flow.Flow) *flow.Flow {
	latest := prior
	for _, f := range siblings {
		if f.Batch != prior.Batch || f.ID <= latest.ID {
			continue
		}
		if f.State == flow.StateSent || f.State == flow.StateValidated {
			latest = f
		}
	}
	return latest
}
