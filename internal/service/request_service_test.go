package service

import (
	"testing"

	"cashledger/internal/ledger"
	"cashledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) submitRequest(t *testing.T, accountID int64, amount string) *model.BalanceRequest {
	t.Helper()
	br, err := f.svc.SubmitBalanceRequest(f.ctx, &SubmitBalanceRequestRequest{
		AccountID: accountID, Amount: d(amount), Reason: "补充备用金",
	})
	require.NoError(t, err)
	return br
}

func (f *fixture) decide(requestID, adminID int64, decision ledger.Decision) (*model.BalanceRequest, error) {
	return f.svc.DecideBalanceRequest(f.ctx, &DecideBalanceRequestRequest{
		RequestID: requestID, AdminID: adminID, Decision: decision,
	})
}

// 资金池可用 30000，批准 50000 的申请时划拨被拒，申请保持 PENDING
func TestScenarioD_ApprovalBlockedByPoolBalance(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, poolAccount, "30000", "POOL-1")
	br := f.submitRequest(t, accountX, "50000")

	_, err := f.decide(br.ID, adminAccount, ledger.DecisionApprove)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	stored, err := f.svc.getBalanceRequest(f.ctx, br.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BalanceRequestPending, stored.Status)
	assert.Nil(t, stored.DecidedBy)
	assert.True(t, d("30000").Equal(f.balance(t, poolAccount).GrossBalance))
	assert.True(t, f.balance(t, accountX).GrossBalance.IsZero())

	// 资金到位后可以再次审批
	f.deposit(t, poolAccount, "20000", "POOL-2")
	approved, err := f.decide(br.ID, adminAccount, ledger.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, model.BalanceRequestApproved, approved.Status)
	require.NotNil(t, approved.TransferID)
	assert.True(t, f.balance(t, poolAccount).GrossBalance.IsZero())
	assert.True(t, d("50000").Equal(f.balance(t, accountX).GrossBalance))

	var tr model.Transfer
	require.NoError(t, f.db.First(&tr, *approved.TransferID).Error)
	assert.Equal(t, BalanceRequestReference(br), tr.Reference)
	assert.Equal(t, poolAccount, tr.SenderAccountID)
}

func TestApprovalIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, poolAccount, "1000", "POOL-1")
	br := f.submitRequest(t, accountX, "100")

	_, err := f.decide(br.ID, adminAccount, ledger.DecisionApprove)
	require.NoError(t, err)

	_, err = f.decide(br.ID, adminAccount, ledger.DecisionApprove)
	assert.ErrorIs(t, err, ledger.ErrInvalidWorkflowTransition)
	_, err = f.decide(br.ID, adminAccount, ledger.DecisionReject)
	assert.ErrorIs(t, err, ledger.ErrInvalidWorkflowTransition)

	assert.True(t, d("900").Equal(f.balance(t, poolAccount).GrossBalance), "transfer ran exactly once")
	assert.Equal(t, int64(1), f.count(t, &model.Transfer{}))
}

func TestRejectDoesNotTouchLedger(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, poolAccount, "1000", "POOL-1")
	br := f.submitRequest(t, accountX, "100")

	rejected, err := f.svc.DecideBalanceRequest(f.ctx, &DecideBalanceRequestRequest{
		RequestID: br.ID, AdminID: adminAccount, Decision: ledger.DecisionReject, Note: "本月额度已满",
	})
	require.NoError(t, err)
	assert.Equal(t, model.BalanceRequestRejected, rejected.Status)
	assert.Equal(t, "本月额度已满", rejected.DecisionNote)

	_, err = f.decide(br.ID, adminAccount, ledger.DecisionApprove)
	assert.ErrorIs(t, err, ledger.ErrInvalidWorkflowTransition)

	assert.True(t, d("1000").Equal(f.balance(t, poolAccount).GrossBalance))
	assert.Equal(t, int64(0), f.count(t, &model.Transfer{}))

	// 被驳回后可以提交新的申请
	again := f.submitRequest(t, accountX, "100")
	assert.NotEqual(t, br.ID, again.ID)
	pending, err := f.svc.ListBalanceRequests(f.ctx, accountX, model.BalanceRequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, again.ID, pending[0].ID)
}

func TestOnlyAdministratorsDecide(t *testing.T) {
	f := newFixture(t)
	f.deposit(t, poolAccount, "1000", "POOL-1")
	br := f.submitRequest(t, accountX, "100")

	_, err := f.decide(br.ID, accountY, ledger.DecisionApprove)
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = f.decide(br.ID, 4040, ledger.DecisionApprove)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.decide(999, adminAccount, ledger.DecisionApprove)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.decide(br.ID, adminAccount, "MAYBE")
	assert.ErrorIs(t, err, ledger.ErrValidation)

	stored, err := f.svc.getBalanceRequest(f.ctx, br.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BalanceRequestPending, stored.Status)
}

func TestSubmitBalanceRequestValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SubmitBalanceRequest(f.ctx, &SubmitBalanceRequestRequest{AccountID: accountX, Amount: d("0")})
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = f.svc.SubmitBalanceRequest(f.ctx, &SubmitBalanceRequestRequest{AccountID: 4040, Amount: d("1")})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
