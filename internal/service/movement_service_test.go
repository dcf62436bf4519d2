package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"vives-backoffice/internal/core/domain"
	"vives-backoffice/internal/core/ports"
	"vives-backoffice/internal/core/ports/mocks"
	"vives-backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	payerIBAN = "ES9121000418450200051332"
	payeeIBAN = "DE89370400440532013000"
)

type movementTestDeps struct {
	svc          *MovementServiceImpl
	accountRepo  *mocks.MockAccountRepository
	movementRepo *mocks.MockMovementRepository
	ledger       *mocks.MockAccountLedger
	ctrl         *gomock.Controller
}

func setupMovementService(t *testing.T) *movementTestDeps {
	ctrl := gomock.NewController(t)
	d := &movementTestDeps{
		accountRepo:  mocks.NewMockAccountRepository(ctrl),
		movementRepo: mocks.NewMockMovementRepository(ctrl),
		ledger:       mocks.NewMockAccountLedger(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewMovementService(d.accountRepo, d.movementRepo, d.ledger, 24*time.Hour, zerolog.Nop())
	return d
}

func payerAccount(balance string) *domain.Account {
	return &domain.Account{
		ID:         1,
		GUID:       uuid.MustParse("5f64b9a1-3e07-4a8e-9c36-2d1a67c0f111"),
		IBAN:       payerIBAN,
		Balance:    decimal.RequireFromString(balance),
		ClientGUID: uuid.MustParse("0b9f2a6e-74c8-4d21-8f3a-6c58e1d4b222"),
	}
}

func weeklyMandate(amount string) *domain.Mandate {
	return &domain.Mandate{
		ID:           7,
		GUID:         uuid.New(),
		ClientGUID:   uuid.MustParse("0b9f2a6e-74c8-4d21-8f3a-6c58e1d4b222"),
		CreditorName: "Energia Iberica SA",
		PayerIBAN:    payerIBAN,
		PayeeIBAN:    payeeIBAN,
		Amount:       decimal.RequireFromString(amount),
		Periodicity:  domain.PeriodicityWeekly,
		Active:       true,
	}
}

// ==================== RecordDirectDebitExecution ====================

func TestMovementService_RecordDirectDebitExecution_Success(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	mandate := weeklyMandate("30.00")
	account := payerAccount("100.00")
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(account, nil)
	d.ledger.EXPECT().
		AdjustBalance(ctx, account.GUID, decimalEq("-30.00")).
		Return(decimal.RequireFromString("70.00"), nil)
	d.movementRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	movement, err := d.svc.RecordDirectDebitExecution(ctx, mandate, now)
	require.NoError(t, err)
	require.NotNil(t, movement)
	assert.Equal(t, domain.MovementKindDirectDebit, movement.Kind)
	assert.Equal(t, now, movement.CreatedAt)
	require.NotNil(t, movement.DirectDebit)
	assert.Equal(t, mandate.GUID, movement.DirectDebit.MandateGUID)
	assert.Equal(t, mandate.CreditorName, movement.DirectDebit.CreditorName)
	assert.True(t, movement.DirectDebit.Amount.Equal(mandate.Amount))
	require.NoError(t, movement.Validate())
}

func TestMovementService_RecordDirectDebitExecution_InsufficientFunds(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	mandate := weeklyMandate("30.00")
	account := payerAccount("10.00")

	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(account, nil)
	// precheck fails, ledger never touched

	_, err := d.svc.RecordDirectDebitExecution(ctx, mandate, time.Now())
	assert.Equal(t, apperror.CodeInsufficientFunds, apperror.CodeOf(err))
}

func TestMovementService_RecordDirectDebitExecution_PayerNotFound(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(nil, nil)

	_, err := d.svc.RecordDirectDebitExecution(ctx, weeklyMandate("30.00"), time.Now())
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestMovementService_RecordDirectDebitExecution_AppendFailureIsPostCommit(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	mandate := weeklyMandate("30.00")
	account := payerAccount("100.00")

	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(account, nil)
	d.ledger.EXPECT().
		AdjustBalance(ctx, account.GUID, gomock.Any()).
		Return(decimal.RequireFromString("70.00"), nil)
	d.movementRepo.EXPECT().Create(ctx, gomock.Any()).Return(errors.New("insert failed"))

	_, err := d.svc.RecordDirectDebitExecution(ctx, mandate, time.Now())
	assert.Equal(t, apperror.CodePostCommitInconsistency, apperror.CodeOf(err))
}

// ==================== CreateTransfer ====================

func transferRequest(amount string) ports.TransferRequest {
	return ports.TransferRequest{
		ClientGUID:      uuid.MustParse("0b9f2a6e-74c8-4d21-8f3a-6c58e1d4b222"),
		SourceIBAN:      payerIBAN,
		DestinationIBAN: payeeIBAN,
		BeneficiaryName: "Ana Torres",
		Amount:          decimal.RequireFromString(amount),
	}
}

func TestMovementService_CreateTransfer_OutboundSuccess(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := transferRequest("45.50")
	source := payerAccount("100.00")

	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(source, nil)
	d.ledger.EXPECT().
		AdjustBalance(ctx, source.GUID, decimalEq("-45.50")).
		Return(decimal.RequireFromString("54.50"), nil)
	d.movementRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	// destination is not held at this bank
	d.accountRepo.EXPECT().GetByIBAN(ctx, payeeIBAN).Return(nil, nil)

	movement, err := d.svc.CreateTransfer(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.MovementKindTransfer, movement.Kind)
	require.NotNil(t, movement.Transfer)
	assert.False(t, movement.Transfer.Revoked)
	assert.Equal(t, payerIBAN, movement.Transfer.SourceIBAN)
	assert.Equal(t, payeeIBAN, movement.Transfer.DestinationIBAN)
}

func TestMovementService_CreateTransfer_LocalDestinationCredited(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := transferRequest("45.50")
	source := payerAccount("100.00")
	destination := &domain.Account{
		GUID:       uuid.New(),
		IBAN:       payeeIBAN,
		Balance:    decimal.RequireFromString("5.00"),
		ClientGUID: uuid.New(),
	}

	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(source, nil)
	d.ledger.EXPECT().
		AdjustBalance(ctx, source.GUID, decimalEq("-45.50")).
		Return(decimal.RequireFromString("54.50"), nil)
	d.movementRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)
	d.accountRepo.EXPECT().GetByIBAN(ctx, payeeIBAN).Return(destination, nil)
	d.ledger.EXPECT().
		AdjustBalance(ctx, destination.GUID, decimalEq("45.50")).
		Return(decimal.RequireFromString("50.50"), nil)

	_, err := d.svc.CreateTransfer(ctx, req)
	require.NoError(t, err)
}

func TestMovementService_CreateTransfer_InvalidIBAN(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	req := transferRequest("45.50")
	req.SourceIBAN = "ES9121000418450200051333"

	_, err := d.svc.CreateTransfer(context.Background(), req)
	assert.Equal(t, apperror.CodeInvalidIBAN, apperror.CodeOf(err))
}

func TestMovementService_CreateTransfer_InvalidAmount(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	for _, amount := range []string{"0", "-5.00", "1.005"} {
		req := transferRequest("1.00")
		req.Amount = decimal.RequireFromString(amount)

		_, err := d.svc.CreateTransfer(context.Background(), req)
		assert.Equal(t, apperror.CodeInvalidAmount, apperror.CodeOf(err), "amount %s", amount)
	}
}

func TestMovementService_CreateTransfer_OwnershipViolation(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := transferRequest("45.50")
	source := payerAccount("100.00")
	source.ClientGUID = uuid.New() // someone else's account

	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(source, nil)

	_, err := d.svc.CreateTransfer(ctx, req)
	assert.Equal(t, apperror.CodeOwnershipViolation, apperror.CodeOf(err))
}

func TestMovementService_CreateTransfer_InsufficientFunds(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := transferRequest("45.50")
	source := payerAccount("10.00")

	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(source, nil)

	_, err := d.svc.CreateTransfer(ctx, req)
	assert.Equal(t, apperror.CodeInsufficientFunds, apperror.CodeOf(err))
}

// ==================== RevokeTransfer ====================

func recordedTransfer(createdAt time.Time) *domain.Movement {
	m := domain.NewTransferMovement(
		uuid.MustParse("0b9f2a6e-74c8-4d21-8f3a-6c58e1d4b222"),
		domain.Transfer{
			SourceIBAN:      payerIBAN,
			BeneficiaryName: "Ana Torres",
			DestinationIBAN: payeeIBAN,
			Amount:          decimal.RequireFromString("45.50"),
		},
		createdAt,
	)
	return m
}

func TestMovementService_RevokeTransfer_Success(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	d.svc.now = func() time.Time { return now }

	movement := recordedTransfer(now.Add(-1 * time.Hour))
	source := payerAccount("54.50")

	d.movementRepo.EXPECT().GetByID(ctx, movement.ID).Return(movement, nil)
	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(source, nil)
	gomock.InOrder(
		d.movementRepo.EXPECT().MarkTransferRevoked(ctx, movement.ID).Return(nil),
		d.ledger.EXPECT().
			AdjustBalance(ctx, source.GUID, decimalEq("45.50")).
			Return(decimal.RequireFromString("100.00"), nil),
		d.movementRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil),
	)

	compensation, err := d.svc.RevokeTransfer(ctx, movement.ID, movement.ClientGUID)
	require.NoError(t, err)
	require.NotNil(t, compensation.Transfer)
	assert.Equal(t, payeeIBAN, compensation.Transfer.SourceIBAN)
	assert.Equal(t, payerIBAN, compensation.Transfer.DestinationIBAN)
	assert.True(t, compensation.Transfer.Amount.Equal(decimal.RequireFromString("45.50")))
}

func TestMovementService_RevokeTransfer_AtWindowBoundary(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	createdAt := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	d.svc.now = func() time.Time { return createdAt.Add(24 * time.Hour) } // exactly at the boundary

	movement := recordedTransfer(createdAt)
	source := payerAccount("54.50")

	d.movementRepo.EXPECT().GetByID(ctx, movement.ID).Return(movement, nil)
	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(source, nil)
	d.movementRepo.EXPECT().MarkTransferRevoked(ctx, movement.ID).Return(nil)
	d.ledger.EXPECT().AdjustBalance(ctx, source.GUID, gomock.Any()).
		Return(decimal.RequireFromString("100.00"), nil)
	d.movementRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	_, err := d.svc.RevokeTransfer(ctx, movement.ID, movement.ClientGUID)
	require.NoError(t, err)
}

func TestMovementService_RevokeTransfer_WindowExpired(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	createdAt := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	d.svc.now = func() time.Time { return createdAt.Add(24*time.Hour + time.Second) }

	movement := recordedTransfer(createdAt)
	d.movementRepo.EXPECT().GetByID(ctx, movement.ID).Return(movement, nil)

	_, err := d.svc.RevokeTransfer(ctx, movement.ID, movement.ClientGUID)
	assert.Equal(t, apperror.CodeRevocationWindow, apperror.CodeOf(err))
}

func TestMovementService_RevokeTransfer_AlreadyRevoked(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	movement := recordedTransfer(time.Now())
	movement.Transfer.Revoked = true

	d.movementRepo.EXPECT().GetByID(ctx, movement.ID).Return(movement, nil)

	_, err := d.svc.RevokeTransfer(ctx, movement.ID, movement.ClientGUID)
	assert.Equal(t, apperror.CodeAlreadyRevoked, apperror.CodeOf(err))
}

func TestMovementService_RevokeTransfer_NotATransfer(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	movement := domain.NewCardPaymentMovement(uuid.New(), domain.CardPayment{
		CardNumber:   "4000123412341234",
		MerchantName: "Cafe Central",
		Amount:       decimal.RequireFromString("3.20"),
	}, time.Now())

	d.movementRepo.EXPECT().GetByID(ctx, movement.ID).Return(movement, nil)

	_, err := d.svc.RevokeTransfer(ctx, movement.ID, movement.ClientGUID)
	assert.Equal(t, apperror.CodeNotATransfer, apperror.CodeOf(err))
}

func TestMovementService_RevokeTransfer_NotOwner(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	movement := recordedTransfer(time.Now())

	d.movementRepo.EXPECT().GetByID(ctx, movement.ID).Return(movement, nil)

	_, err := d.svc.RevokeTransfer(ctx, movement.ID, uuid.New())
	assert.Equal(t, apperror.CodeOwnershipViolation, apperror.CodeOf(err))
}

func TestMovementService_RevokeTransfer_CreditFailureAfterFlag(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	movement := recordedTransfer(time.Now().UTC())
	source := payerAccount("54.50")

	d.movementRepo.EXPECT().GetByID(ctx, movement.ID).Return(movement, nil)
	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(source, nil)
	d.movementRepo.EXPECT().MarkTransferRevoked(ctx, movement.ID).Return(nil)
	d.ledger.EXPECT().
		AdjustBalance(ctx, source.GUID, gomock.Any()).
		Return(decimal.Zero, apperror.ErrTransientStore(errors.New("connection reset")))

	_, err := d.svc.RevokeTransfer(ctx, movement.ID, movement.ClientGUID)
	assert.Equal(t, apperror.CodePostCommitInconsistency, apperror.CodeOf(err))
}

// ==================== RecordCardPayment / RecordPayrollCredit ====================

func TestMovementService_RecordCardPayment_Success(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	account := payerAccount("100.00")
	req := ports.CardPaymentRequest{
		ClientGUID:   account.ClientGUID,
		AccountIBAN:  payerIBAN,
		CardNumber:   "4000123412341234",
		MerchantName: "Cafe Central",
		Amount:       decimal.RequireFromString("3.20"),
	}

	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(account, nil)
	d.ledger.EXPECT().
		AdjustBalance(ctx, account.GUID, decimalEq("-3.20")).
		Return(decimal.RequireFromString("96.80"), nil)
	d.movementRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	movement, err := d.svc.RecordCardPayment(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.MovementKindCardPayment, movement.Kind)
	require.NotNil(t, movement.CardPayment)
	assert.Equal(t, "Cafe Central", movement.CardPayment.MerchantName)
}

func TestMovementService_RecordPayrollCredit_Success(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	account := payerAccount("100.00")
	req := ports.PayrollCreditRequest{
		EmployeeIBAN:  payerIBAN,
		EmployerName:  "Construcciones Lopez SL",
		EmployerTaxID: "B12345678",
		EmployerIBAN:  payeeIBAN,
		Amount:        decimal.RequireFromString("1850.00"),
	}

	d.accountRepo.EXPECT().GetByIBAN(ctx, payerIBAN).Return(account, nil)
	d.ledger.EXPECT().
		AdjustBalance(ctx, account.GUID, decimalEq("1850.00")).
		Return(decimal.RequireFromString("1950.00"), nil)
	d.movementRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	movement, err := d.svc.RecordPayrollCredit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.MovementKindPayrollCredit, movement.Kind)
	assert.Equal(t, account.ClientGUID, movement.ClientGUID)
}

func TestMovementService_GetMovement_NotFound(t *testing.T) {
	d := setupMovementService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	d.movementRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := d.svc.GetMovement(ctx, id)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}
