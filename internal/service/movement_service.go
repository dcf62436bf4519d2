package service

import (
	"context"
	"fmt"
	"time"

	"vives-backoffice/internal/core/domain"
	"vives-backoffice/internal/core/ports"
	"vives-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MovementServiceImpl implements ports.MovementService. Every movement is
// processed as a single unit of work: validate, adjust balances through the
// ledger, append the ledger entry. A movement append that fails after its
// balance adjustment committed is a post-commit inconsistency; it is logged
// as an incident and never retried, a retry would double the adjustment.
type MovementServiceImpl struct {
	accountRepo  ports.AccountRepository
	movementRepo ports.MovementRepository
	ledger       ports.AccountLedger
	revocation   time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

// NewMovementService creates a new MovementServiceImpl. revocationWindow
// bounds how long after creation a transfer may still be revoked.
func NewMovementService(
	accountRepo ports.AccountRepository,
	movementRepo ports.MovementRepository,
	ledger ports.AccountLedger,
	revocationWindow time.Duration,
	log zerolog.Logger,
) *MovementServiceImpl {
	return &MovementServiceImpl{
		accountRepo:  accountRepo,
		movementRepo: movementRepo,
		ledger:       ledger,
		revocation:   revocationWindow,
		now:          func() time.Time { return time.Now().UTC() },
		log:          log,
	}
}

// RecordDirectDebitExecution executes one due mandate: debit the payer
// account and append the direct-debit movement. Called by the scheduler with
// the tick's observation instant.
func (s *MovementServiceImpl) RecordDirectDebitExecution(ctx context.Context, mandate *domain.Mandate, now time.Time) (*domain.Movement, error) {
	account, err := s.accountRepo.GetByIBAN(ctx, mandate.PayerIBAN)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load payer account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("payer account")
	}

	// Cheap precheck before opening a transaction. The ledger re-checks
	// under the row lock, which is the authoritative decision.
	if !account.CanDebit(mandate.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if _, err := s.ledger.AdjustBalance(ctx, account.GUID, mandate.Amount.Neg()); err != nil {
		return nil, err
	}

	movement := domain.NewDirectDebitMovement(mandate.ClientGUID, domain.DirectDebit{
		CreditorName: mandate.CreditorName,
		PayerIBAN:    mandate.PayerIBAN,
		PayeeIBAN:    mandate.PayeeIBAN,
		Amount:       mandate.Amount,
		MandateGUID:  mandate.GUID,
	}, now)

	if err := s.movementRepo.Create(ctx, movement); err != nil {
		return nil, s.postCommitIncident(err, "direct debit appended no movement after committed debit",
			movement.ID, account.GUID)
	}
	return movement, nil
}

// CreateTransfer debits the source account, appends the transfer movement and
// credits the destination account when it is held at this bank. A destination
// IBAN with no local account is an outbound transfer and is not an error.
func (s *MovementServiceImpl) CreateTransfer(ctx context.Context, req ports.TransferRequest) (*domain.Movement, error) {
	if !domain.ValidIBAN(req.SourceIBAN) {
		return nil, apperror.ErrInvalidIBAN(req.SourceIBAN)
	}
	if !domain.ValidIBAN(req.DestinationIBAN) {
		return nil, apperror.ErrInvalidIBAN(req.DestinationIBAN)
	}
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	source, err := s.accountRepo.GetByIBAN(ctx, req.SourceIBAN)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load source account: %w", err))
	}
	if source == nil {
		return nil, apperror.ErrNotFound("source account")
	}
	if !source.OwnedBy(req.ClientGUID) {
		return nil, apperror.ErrOwnershipViolation()
	}
	if !source.CanDebit(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if _, err := s.ledger.AdjustBalance(ctx, source.GUID, req.Amount.Neg()); err != nil {
		return nil, err
	}

	movement := domain.NewTransferMovement(req.ClientGUID, domain.Transfer{
		SourceIBAN:      req.SourceIBAN,
		BeneficiaryName: req.BeneficiaryName,
		DestinationIBAN: req.DestinationIBAN,
		Amount:          req.Amount,
	}, s.now())

	if err := s.movementRepo.Create(ctx, movement); err != nil {
		return nil, s.postCommitIncident(err, "transfer appended no movement after committed debit",
			movement.ID, source.GUID)
	}

	destination, err := s.accountRepo.GetByIBAN(ctx, req.DestinationIBAN)
	if err != nil {
		return nil, s.postCommitIncident(err, "transfer destination lookup failed after committed debit",
			movement.ID, source.GUID)
	}
	if destination != nil {
		if _, err := s.ledger.AdjustBalance(ctx, destination.GUID, req.Amount); err != nil {
			return nil, s.postCommitIncident(err, "transfer destination credit failed after committed debit",
				movement.ID, destination.GUID)
		}
	}
	return movement, nil
}

// RevokeTransfer marks a transfer revoked, credits the amount back to the
// source account and appends the compensating movement. History is never
// rewritten; the reversal is its own ledger entry.
func (s *MovementServiceImpl) RevokeTransfer(ctx context.Context, movementID, clientGUID uuid.UUID) (*domain.Movement, error) {
	movement, err := s.movementRepo.GetByID(ctx, movementID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load movement: %w", err))
	}
	if movement == nil {
		return nil, apperror.ErrNotFound("movement")
	}
	if !movement.IsTransfer() {
		return nil, apperror.ErrNotATransfer()
	}
	if movement.Transfer.Revoked {
		return nil, apperror.ErrAlreadyRevoked()
	}
	if movement.ClientGUID != clientGUID {
		return nil, apperror.ErrOwnershipViolation()
	}
	if !movement.WithinRevocationWindow(s.now(), s.revocation) {
		return nil, apperror.ErrRevocationWindowExpired()
	}

	source, err := s.accountRepo.GetByIBAN(ctx, movement.Transfer.SourceIBAN)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load source account: %w", err))
	}
	if source == nil {
		return nil, apperror.ErrNotFound("source account")
	}

	if err := s.movementRepo.MarkTransferRevoked(ctx, movement.ID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark revoked: %w", err))
	}

	// From here on the revoked flag is durably set; any failure leaves the
	// system needing operator intervention rather than a retry.
	if _, err := s.ledger.AdjustBalance(ctx, source.GUID, movement.Transfer.Amount); err != nil {
		return nil, s.postCommitIncident(err, "compensating credit failed after revocation flag was set",
			movement.ID, source.GUID)
	}

	compensation := domain.NewTransferMovement(clientGUID, domain.Transfer{
		SourceIBAN:      movement.Transfer.DestinationIBAN,
		BeneficiaryName: movement.Transfer.BeneficiaryName,
		DestinationIBAN: movement.Transfer.SourceIBAN,
		Amount:          movement.Transfer.Amount,
	}, s.now())

	if err := s.movementRepo.Create(ctx, compensation); err != nil {
		return nil, s.postCommitIncident(err, "revocation appended no compensating movement after committed credit",
			compensation.ID, source.GUID)
	}
	return compensation, nil
}

// RecordCardPayment debits the card's account and appends the card-payment
// movement.
func (s *MovementServiceImpl) RecordCardPayment(ctx context.Context, req ports.CardPaymentRequest) (*domain.Movement, error) {
	if !domain.ValidIBAN(req.AccountIBAN) {
		return nil, apperror.ErrInvalidIBAN(req.AccountIBAN)
	}
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	account, err := s.accountRepo.GetByIBAN(ctx, req.AccountIBAN)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load card account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	if !account.OwnedBy(req.ClientGUID) {
		return nil, apperror.ErrOwnershipViolation()
	}
	if !account.CanDebit(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if _, err := s.ledger.AdjustBalance(ctx, account.GUID, req.Amount.Neg()); err != nil {
		return nil, err
	}

	movement := domain.NewCardPaymentMovement(req.ClientGUID, domain.CardPayment{
		CardNumber:   req.CardNumber,
		MerchantName: req.MerchantName,
		Amount:       req.Amount,
	}, s.now())

	if err := s.movementRepo.Create(ctx, movement); err != nil {
		return nil, s.postCommitIncident(err, "card payment appended no movement after committed debit",
			movement.ID, account.GUID)
	}
	return movement, nil
}

// RecordPayrollCredit credits the employee account and appends the
// payroll-credit movement. The employer account is external; only the
// employee side is held at this bank.
func (s *MovementServiceImpl) RecordPayrollCredit(ctx context.Context, req ports.PayrollCreditRequest) (*domain.Movement, error) {
	if !domain.ValidIBAN(req.EmployeeIBAN) {
		return nil, apperror.ErrInvalidIBAN(req.EmployeeIBAN)
	}
	if !domain.ValidIBAN(req.EmployerIBAN) {
		return nil, apperror.ErrInvalidIBAN(req.EmployerIBAN)
	}
	if !domain.ValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}

	account, err := s.accountRepo.GetByIBAN(ctx, req.EmployeeIBAN)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load employee account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("employee account")
	}

	if _, err := s.ledger.AdjustBalance(ctx, account.GUID, req.Amount); err != nil {
		return nil, err
	}

	movement := domain.NewPayrollCreditMovement(account.ClientGUID, domain.PayrollCredit{
		EmployerName:  req.EmployerName,
		EmployerTaxID: req.EmployerTaxID,
		EmployerIBAN:  req.EmployerIBAN,
		EmployeeIBAN:  req.EmployeeIBAN,
		Amount:        req.Amount,
	}, s.now())

	if err := s.movementRepo.Create(ctx, movement); err != nil {
		return nil, s.postCommitIncident(err, "payroll credit appended no movement after committed credit",
			movement.ID, account.GUID)
	}
	return movement, nil
}

// GetMovement returns a movement by ID.
func (s *MovementServiceImpl) GetMovement(ctx context.Context, id uuid.UUID) (*domain.Movement, error) {
	movement, err := s.movementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load movement: %w", err))
	}
	if movement == nil {
		return nil, apperror.ErrNotFound("movement")
	}
	return movement, nil
}

// postCommitIncident logs a SYS_020 incident and wraps the cause. These are
// the only errors in the service that an operator must resolve by hand.
func (s *MovementServiceImpl) postCommitIncident(cause error, msg string, movementID, accountGUID uuid.UUID) error {
	s.log.Error().
		Err(cause).
		Str("incident", apperror.CodePostCommitInconsistency).
		Str("movement_id", movementID.String()).
		Str("account_guid", accountGUID.String()).
		Msg(msg)
	return apperror.ErrPostCommitInconsistency(cause)
}
