package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/kasuwa-hq/kasuwa-backend/internal/wallet"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/banks"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/config"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwa-hq/kasuwa-backend/pkg/errors"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/logger"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/metrics"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/outbox/payloads"
	"github.com/kasuwa-hq/kasuwa-backend/pkg/paystack"
)

const (
	jobName   = "provision-subaccounts"
	lockScope = "provision-subaccounts"
)

// SubaccountCreator provisions split destinations at the payment rail.
// *paystack.Client satisfies it.
type SubaccountCreator interface {
	CreateSubaccount(ctx context.Context, req paystack.SubaccountRequest) (*paystack.Subaccount, error)
}

// Locker guards against two provisioning runs overlapping.
type Locker interface {
	AcquireLock(ctx context.Context, scope string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope string) error
}

// FailedItem records one seller the batch could not provision.
type FailedItem struct {
	SellerID uuid.UUID
	Reason   string
}

// BatchResult summarizes one provisioning run.
type BatchResult struct {
	Created int
	Skipped int
	Failed  []FailedItem
}

// Service provisions payment-rail subaccounts for sellers in batches.
type Service interface {
	ProvisionAll(ctx context.Context) (*BatchResult, error)
}

// Params configure the provisioning service.
type Params struct {
	Runner   wallet.TxRunner
	Repo     Repository
	Provider SubaccountCreator
	Locker   Locker
	Events   *outbox.Service
	Metrics  *metrics.BatchJobMetrics
	Config   config.ProvisioningConfig
	FeeRate  float64
	Logger   *logger.Logger
}

type service struct {
	runner   wallet.TxRunner
	repo     Repository
	provider SubaccountCreator
	locker   Locker
	events   *outbox.Service
	metrics  *metrics.BatchJobMetrics
	cfg      config.ProvisioningConfig
	feeRate  float64
	logg     *logger.Logger
	now      func() time.Time
	sleep    func(time.Duration)
}

// NewService wires the provisioning batch job.
func NewService(params Params) (Service, error) {
	if params.Runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("provisioning repository required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("subaccount provider required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.FeeRate < 0 || params.FeeRate >= 1 {
		return nil, fmt.Errorf("fee rate %v out of range", params.FeeRate)
	}
	return &service{
		runner:   params.Runner,
		repo:     params.Repo,
		provider: params.Provider,
		locker:   params.Locker,
		events:   params.Events,
		metrics:  params.Metrics,
		cfg:      params.Config,
		feeRate:  params.FeeRate,
		logg:     params.Logger,
		now:      time.Now,
		sleep:    time.Sleep,
	}, nil
}

// ProvisionAll walks every eligible seller sequentially, creating a provider
// subaccount for each. Failures are recorded and the batch continues; the
// returned error aggregates them.
func (s *service) ProvisionAll(ctx context.Context) (*BatchResult, error) {
	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ctx, lockScope, s.cfg.LockTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire provisioning lock")
		}
		if !acquired {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a provisioning run is already in progress")
		}
		defer func() {
			if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockScope); err != nil {
				s.logg.Error(ctx, "release provisioning lock", err)
			}
		}()
	}

	start := s.now()
	result := &BatchResult{}
	var errs []error

	candidates, err := s.repo.FindCandidates(ctx, s.cfg.BatchSize)
	if err != nil {
		s.recordRun(start, false)
		return nil, fmt.Errorf("query provisioning candidates: %w", err)
	}

	// Sellers provisioned by an earlier run count as skipped, so a re-run
	// over a fully provisioned roster reports the whole roster rather than
	// an empty batch.
	provisioned, err := s.repo.CountProvisioned(ctx)
	if err != nil {
		s.recordRun(start, false)
		return nil, fmt.Errorf("count provisioned sellers: %w", err)
	}
	result.Skipped = int(provisioned)

	for i, candidate := range candidates {
		if i > 0 && s.cfg.InterItemDelay > 0 {
			s.sleep(s.cfg.InterItemDelay)
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		itemCtx := s.logg.WithSellerID(ctx, candidate.Seller.ID.String())
		outcome, err := s.provisionOne(itemCtx, candidate)
		switch outcome {
		case "created":
			result.Created++
		case "skipped":
			result.Skipped++
		default:
			result.Failed = append(result.Failed, FailedItem{
				SellerID: candidate.Seller.ID,
				Reason:   err.Error(),
			})
			errs = append(errs, err)
			s.logg.Warn(s.logg.WithField(itemCtx, "reason", err.Error()), "seller provisioning failed")
		}
		if s.metrics != nil {
			s.metrics.AddItems(jobName, outcome, 1)
		}
	}

	s.recordRun(start, len(errs) == 0)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"created": result.Created,
		"skipped": result.Skipped,
		"failed":  len(result.Failed),
	})
	s.logg.Info(logCtx, "subaccount provisioning run complete")
	return result, multierr.Combine(errs...)
}

// provisionOne creates the subaccount for a single seller, retrying transport
// failures. Returns the item outcome label used for metrics.
func (s *service) provisionOne(ctx context.Context, candidate Candidate) (string, error) {
	seller := candidate.Seller
	bank := candidate.Bank

	if seller.HasSubaccount() {
		return "skipped", nil
	}
	if _, ok := banks.LookupCode(bank.BankCode); !ok {
		return "skipped", nil
	}
	if bank.AccountNumber == "" || seller.BusinessName == "" || seller.ContactEmail == "" {
		return "skipped", nil
	}

	req := paystack.SubaccountRequest{
		BusinessName:   seller.BusinessName,
		SettlementBank: bank.BankCode,
		AccountNumber:  bank.AccountNumber,
		// Paystack expects the platform's share in percent.
		PercentageCharge:    s.feeRate * 100,
		PrimaryContactEmail: seller.ContactEmail,
	}

	var subaccount *paystack.Subaccount
	attempts := s.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		created, err := s.provider.CreateSubaccount(ctx, req)
		if err == nil {
			subaccount = created
			break
		}
		lastErr = err
		// The provider rejected the request outright, retrying the same
		// payload cannot succeed.
		if pkgerrors.HasCode(err, pkgerrors.CodeProviderRejected) {
			return "failed", err
		}
		if attempt < attempts && s.cfg.RetryBackoff > 0 {
			s.sleep(s.cfg.RetryBackoff)
		}
	}
	if subaccount == nil {
		return "failed", lastErr
	}

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		recorded, err := repo.RecordSubaccount(ctx, seller.ID, subaccount.SubaccountCode, subaccount.ID)
		if err != nil {
			return err
		}
		if !recorded {
			// Another run won the race; the provider-side subaccount is
			// orphaned but harmless.
			return nil
		}
		if s.events != nil {
			return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSubaccountProvisioned,
				AggregateType: enums.AggregateSeller,
				AggregateID:   seller.ID,
				Version:       1,
				Data: payloads.SubaccountProvisionedEvent{
					SellerID:       seller.ID,
					SubaccountCode: subaccount.SubaccountCode,
					SubaccountID:   subaccount.ID,
				},
			})
		}
		return nil
	})
	if err != nil {
		return "failed", err
	}
	return "created", nil
}

func (s *service) recordRun(start time.Time, success bool) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(jobName, s.now().Sub(start))
	if success {
		s.metrics.IncSuccess(jobName)
	} else {
		s.metrics.IncFailure(jobName)
	}
}
