// Package company holds the per-company reporting settings the host configures:
// reporting periodicity per profile and the fixed data of the periodic returns.
package company

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/edocument-exchange/internal/domain/flow"
	"github.com/edocument-exchange/internal/domain/record"
	"github.com/edocument-exchange/internal/domain/shared"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// JPKSettings carries what a Polish return needs beyond the evidence.
type JPKSettings struct {
	Quarterly bool   `json:"quarterly"`
	TaxOffice string `json:"tax_office"`
	// CarriedForward is the excess input tax of the previous period.
	CarriedForward     decimal.Decimal  `json:"carried_forward"`
	CashRegister       decimal.Decimal  `json:"cash_register"`
	PaymentPeriodicity flow.Periodicity `json:"payment_periodicity,omitempty"`
}

type TPARSettings struct {
	Contact record.Party `json:"contact"`
	Test    bool         `json:"test"`
}

type Settings struct {
	CompanyID   int64                               `json:"company_id"`
	Periodicity map[shared.Profile]flow.Periodicity `json:"periodicity"`
	JPK         JPKSettings                         `json:"jpk"`
	TPAR        TPARSettings                        `json:"tpar"`
	UpdatedAt   time.Time                           `json:"updated_at"`
}

// Defaults returns the settings of a company that never configured anything.
func Defaults(companyID int64) *Settings {
	return &Settings{CompanyID: companyID, Periodicity: map[shared.Profile]flow.Periodicity{}}
}

// PeriodicityFor returns the reporting period of an aggregated profile.
func (s *Settings) PeriodicityFor(p shared.Profile, kind flow.Kind) (flow.Periodicity, error) {
	configured := s.Periodicity[p]
	switch p {
	case shared.ProfileROETransport:
		if configured == "" {
			return flow.Decadal, nil
		}
		return configured, nil
	case shared.ProfilePLJPK:
		// The evidence is filed every month; Quarterly only moves the declaration
		// to quarter ends. Cash-method payments may be settled per quarter.
		if kind == flow.KindPayment && s.JPK.PaymentPeriodicity != "" {
			configured = s.JPK.PaymentPeriodicity
			if configured != flow.Monthly && configured != flow.Quarterly {
				return "", shared.NewError(shared.KindConfiguration,
					fmt.Sprintf("JPK payments are settled monthly or quarterly, not %q", configured), nil)
			}
			return configured, nil
		}
		if configured != "" && configured != flow.Monthly {
			return "", shared.NewError(shared.KindConfiguration,
				fmt.Sprintf("JPK evidence is filed monthly, not %q", configured), nil)
		}
		return flow.Monthly, nil
	case shared.ProfileAUTPAR:
		return flow.Yearly, nil
	}
	return "", shared.NewError(shared.KindConfiguration, fmt.Sprintf("profile %s does not aggregate records", p), nil)
}

// Repository defines company settings persistence operations
type Repository interface {
	// Get returns the stored settings, or Defaults when the company has none
	Get(ctx context.Context, companyID int64) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
	WithTx(tx pgx.Tx) Repository
}

// ErrInvalidSettings indicates settings rejected before they are stored
type ErrInvalidSettings struct {
	CompanyID int64
	Reason    string
}

func (e ErrInvalidSettings) Error() string {
	return "invalid settings for company " + strconv.FormatInt(e.CompanyID, 10) + ": " + e.Reason
}

// Validate checks the settings before they are saved.
func (s *Settings) Validate() error {
	for p, per := range s.Periodicity {
		if !p.IsAggregated() {
			return ErrInvalidSettings{CompanyID: s.CompanyID, Reason: fmt.Sprintf("profile %s has no periodicity", p)}
		}
		switch per {
		case flow.Monthly, flow.Bimonthly, flow.Decadal, flow.Quarterly, flow.Yearly:
		default:
			return ErrInvalidSettings{CompanyID: s.CompanyID, Reason: fmt.Sprintf("unknown periodicity %q", per)}
		}
	}
	if _, err := s.PeriodicityFor(shared.ProfilePLJPK, flow.KindPayment); err != nil {
		return ErrInvalidSettings{CompanyID: s.CompanyID, Reason: shared.Message(err)}
	}
	if _, err := s.PeriodicityFor(shared.ProfilePLJPK, flow.KindTransaction); err != nil {
		return ErrInvalidSettings{CompanyID: s.CompanyID, Reason: shared.Message(err)}
	}
	return nil
}
