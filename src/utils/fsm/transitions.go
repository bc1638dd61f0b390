package fsm

import (
	"github.com/warp-contracts/marketplace/src/utils/model"
)

const (
	// Jobs
	EventPublish  Event = "publish"
	EventReview   Event = "review"
	EventReopen   Event = "reopen"
	EventStart    Event = "start"
	EventComplete Event = "complete"
	EventSettle   Event = "settle"
	EventResume   Event = "resume"

	// Shared
	EventCancel   Event = "cancel"
	EventDispute  Event = "dispute"
	EventApprove  Event = "approve"
	EventAccept   Event = "accept"
	EventReject   Event = "reject"
	EventWithdraw Event = "withdraw"

	// Milestones
	EventSubmit         Event = "submit"
	EventRequestChanges Event = "request_changes"
	EventPay            Event = "pay"
	EventRefund         Event = "refund"

	// Applications
	EventShortlist Event = "shortlist"

	// Escrows
	EventFund           Event = "fund"
	EventDeliver        Event = "deliver"
	EventResolveRelease Event = "resolve_release"
	EventResolveRefund  Event = "resolve_refund"

	// Receipts
	EventRead Event = "read"
)

func s[S ~string](states ...S) []string {
	out := make([]string, len(states))
	for i, v := range states {
		out[i] = string(v)
	}
	return out
}

// Transitions of all entities. Lenient receipts may go from sent straight to read.
func Default(lenientReceipts bool) *Table {
	t := New()

	// Jobs
	t.Allow(EntityJob, EventPublish, string(model.JobStatusOpen), s(model.JobStatusDraft)...)
	t.Allow(EntityJob, EventCancel, string(model.JobStatusCancelled), s(model.JobStatusDraft, model.JobStatusOpen, model.JobStatusInReview, model.JobStatusDisputed)...)
	t.Allow(EntityJob, EventReview, string(model.JobStatusInReview), s(model.JobStatusOpen)...)
	t.Allow(EntityJob, EventReopen, string(model.JobStatusOpen), s(model.JobStatusInReview)...)
	t.Allow(EntityJob, EventStart, string(model.JobStatusInProgress), s(model.JobStatusOpen, model.JobStatusInReview)...)
	t.Allow(EntityJob, EventComplete, string(model.JobStatusCompleted), s(model.JobStatusInProgress)...)
	t.Allow(EntityJob, EventDispute, string(model.JobStatusDisputed), s(model.JobStatusInProgress)...)
	t.Allow(EntityJob, EventResume, string(model.JobStatusInProgress), s(model.JobStatusDisputed)...)
	t.Allow(EntityJob, EventSettle, string(model.JobStatusCompleted), s(model.JobStatusDisputed)...)

	// Milestones
	t.Allow(EntityMilestone, EventStart, string(model.MilestoneStatusInProgress), s(model.MilestoneStatusPending)...)
	t.Allow(EntityMilestone, EventSubmit, string(model.MilestoneStatusSubmitted), s(model.MilestoneStatusInProgress)...)
	t.Allow(EntityMilestone, EventRequestChanges, string(model.MilestoneStatusInProgress), s(model.MilestoneStatusSubmitted)...)
	t.Allow(EntityMilestone, EventApprove, string(model.MilestoneStatusApproved), s(model.MilestoneStatusSubmitted, model.MilestoneStatusDisputed)...)
	t.Allow(EntityMilestone, EventPay, string(model.MilestoneStatusPaid), s(model.MilestoneStatusApproved)...)
	t.Allow(EntityMilestone, EventDispute, string(model.MilestoneStatusDisputed), s(model.MilestoneStatusInProgress, model.MilestoneStatusSubmitted)...)
	t.Allow(EntityMilestone, EventResume, string(model.MilestoneStatusInProgress), s(model.MilestoneStatusDisputed)...)
	t.Allow(EntityMilestone, EventRefund, string(model.MilestoneStatusRefunded), s(model.MilestoneStatusDisputed, model.MilestoneStatusInProgress)...)
	t.Allow(EntityMilestone, EventCancel, string(model.MilestoneStatusCancelled), s(model.MilestoneStatusPending, model.MilestoneStatusInProgress)...)

	// Bids
	t.Allow(EntityBid, EventAccept, string(model.BidStatusAccepted), s(model.BidStatusPending)...)
	t.Allow(EntityBid, EventReject, string(model.BidStatusRejected), s(model.BidStatusPending)...)
	t.Allow(EntityBid, EventWithdraw, string(model.BidStatusWithdrawn), s(model.BidStatusPending)...)

	// Applications
	t.Allow(EntityApplication, EventShortlist, string(model.ApplicationStatusShortlisted), s(model.ApplicationStatusPending)...)
	t.Allow(EntityApplication, EventAccept, string(model.ApplicationStatusAccepted), s(model.ApplicationStatusPending, model.ApplicationStatusShortlisted)...)
	t.Allow(EntityApplication, EventReject, string(model.ApplicationStatusRejected), s(model.ApplicationStatusPending, model.ApplicationStatusShortlisted)...)
	t.Allow(EntityApplication, EventWithdraw, string(model.ApplicationStatusWithdrawn), s(model.ApplicationStatusPending, model.ApplicationStatusShortlisted)...)

	// Escrows, mirrors the contract
	t.Allow(EntityEscrow, EventFund, string(model.EscrowStateFunded), s(model.EscrowStateUnfunded)...)
	t.Allow(EntityEscrow, EventDeliver, string(model.EscrowStateDelivered), s(model.EscrowStateFunded)...)
	t.Allow(EntityEscrow, EventApprove, string(model.EscrowStateReleasable), s(model.EscrowStateDelivered)...)
	t.Allow(EntityEscrow, EventDispute, string(model.EscrowStateDisputed), s(model.EscrowStateFunded, model.EscrowStateDelivered)...)
	t.Allow(EntityEscrow, EventResolveRelease, string(model.EscrowStateReleasable), s(model.EscrowStateDisputed)...)
	t.Allow(EntityEscrow, EventResolveRefund, string(model.EscrowStateRefunded), s(model.EscrowStateDisputed)...)
	t.Allow(EntityEscrow, EventWithdraw, string(model.EscrowStatePaid), s(model.EscrowStateReleasable)...)
	t.Allow(EntityEscrow, EventCancel, string(model.EscrowStateRefunded), s(model.EscrowStateUnfunded, model.EscrowStateFunded)...)

	// Receipts
	t.Allow(EntityReceipt, EventDeliver, string(model.ReceiptStateDelivered), s(model.ReceiptStateSent)...)
	t.Allow(EntityReceipt, EventRead, string(model.ReceiptStateRead), s(model.ReceiptStateDelivered)...)
	if lenientReceipts {
		t.Allow(EntityReceipt, EventRead, string(model.ReceiptStateRead), s(model.ReceiptStateSent)...)
	}

	return t
}
