package fsm

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func TestFsmTestSuite(t *testing.T) {
	suite.Run(t, new(FsmTestSuite))
}

type FsmTestSuite struct {
	suite.Suite
	table *Table
}

func (s *FsmTestSuite) SetupSuite() {
	s.table = Default(true)
}

func (s *FsmTestSuite) requireInvalid(err error) {
	appErr, ok := apperr.As(err)
	require.True(s.T(), ok)
	require.Equal(s.T(), "INVALID_TRANSITION", appErr.Code)
	require.Equal(s.T(), http.StatusBadRequest, appErr.StatusCode)
}

func (s *FsmTestSuite) TestEscrowHappyPath() {
	state := model.EscrowStateUnfunded
	for _, event := range []Event{EventFund, EventDeliver, EventApprove, EventWithdraw} {
		var err error
		state, err = Fire(s.table, EntityEscrow, state, event)
		require.NoError(s.T(), err)
	}
	require.Equal(s.T(), model.EscrowStatePaid, state)
	require.True(s.T(), s.table.IsTerminal(EntityEscrow, string(model.EscrowStatePaid)))
	require.True(s.T(), s.table.IsTerminal(EntityEscrow, string(model.EscrowStateRefunded)))
}

func (s *FsmTestSuite) TestEscrowDeliverRequiresFunded() {
	_, err := Fire(s.table, EntityEscrow, model.EscrowStateUnfunded, EventDeliver)
	s.requireInvalid(err)

	_, err = Fire(s.table, EntityEscrow, model.EscrowStateDelivered, EventDeliver)
	s.requireInvalid(err)
}

func (s *FsmTestSuite) TestEscrowDispute() {
	to, err := Fire(s.table, EntityEscrow, model.EscrowStateDelivered, EventDispute)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.EscrowStateDisputed, to)

	to, err = Fire(s.table, EntityEscrow, to, EventResolveRefund)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.EscrowStateRefunded, to)
}

func (s *FsmTestSuite) TestSameStateIsNoop() {
	noop, err := Check(s.table, EntityEscrow, model.EscrowStatePaid, model.EscrowStatePaid)
	require.NoError(s.T(), err)
	require.True(s.T(), noop)
}

func (s *FsmTestSuite) TestCheckJob() {
	noop, err := Check(s.table, EntityJob, model.JobStatusOpen, model.JobStatusInProgress)
	require.NoError(s.T(), err)
	require.False(s.T(), noop)

	_, err = Check(s.table, EntityJob, model.JobStatusCompleted, model.JobStatusOpen)
	s.requireInvalid(err)
}

func (s *FsmTestSuite) TestEventFor() {
	event, err := s.table.EventFor(EntityEscrow, string(model.EscrowStateFunded), string(model.EscrowStateRefunded))
	require.NoError(s.T(), err)
	require.Equal(s.T(), EventCancel, event)
}

func (s *FsmTestSuite) TestEventsAreSorted() {
	events := s.table.Events(EntityJob, string(model.JobStatusOpen))
	require.Equal(s.T(), []Event{EventCancel, EventReview, EventStart}, events)
}

func (s *FsmTestSuite) TestReceiptPolicies() {
	_, err := Check(s.table, EntityReceipt, model.ReceiptStateSent, model.ReceiptStateRead)
	require.NoError(s.T(), err)

	strict := Default(false)
	_, err = Check(strict, EntityReceipt, model.ReceiptStateSent, model.ReceiptStateRead)
	s.requireInvalid(err)

	_, err = Check(strict, EntityReceipt, model.ReceiptStateDelivered, model.ReceiptStateRead)
	require.NoError(s.T(), err)

	// Never backwards
	_, err = Check(strict, EntityReceipt, model.ReceiptStateRead, model.ReceiptStateDelivered)
	s.requireInvalid(err)
}
