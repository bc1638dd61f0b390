package service

import (
	"fmt"
	"strings"
)

// Entity a notification points to. URL generation lives on each kind.
type Target interface {
	EntityType() string
	EntityID() string
	ActionPath() string
}

type JobTarget struct{ JobID string }

func (self JobTarget) EntityType() string { return "job" }
func (self JobTarget) EntityID() string   { return self.JobID }
func (self JobTarget) ActionPath() string { return "/jobs/" + self.JobID }

type MilestoneTarget struct{ JobID, MilestoneID string }

func (self MilestoneTarget) EntityType() string { return "milestone" }
func (self MilestoneTarget) EntityID() string   { return self.MilestoneID }
func (self MilestoneTarget) ActionPath() string {
	return fmt.Sprintf("/jobs/%s/milestones/%s", self.JobID, self.MilestoneID)
}

type BidTarget struct{ JobID, BidID string }

func (self BidTarget) EntityType() string { return "bid" }
func (self BidTarget) EntityID() string   { return self.BidID }
func (self BidTarget) ActionPath() string {
	return fmt.Sprintf("/jobs/%s/bids/%s", self.JobID, self.BidID)
}

type ApplicationTarget struct{ JobID, ApplicationID string }

func (self ApplicationTarget) EntityType() string { return "application" }
func (self ApplicationTarget) EntityID() string   { return self.ApplicationID }
func (self ApplicationTarget) ActionPath() string {
	return fmt.Sprintf("/jobs/%s/applications/%s", self.JobID, self.ApplicationID)
}

type EscrowTarget struct{ EscrowID string }

func (self EscrowTarget) EntityType() string { return "escrow" }
func (self EscrowTarget) EntityID() string   { return self.EscrowID }
func (self EscrowTarget) ActionPath() string { return "/escrows/" + self.EscrowID }

type ConversationTarget struct{ ConversationID string }

func (self ConversationTarget) EntityType() string { return "conversation" }
func (self ConversationTarget) EntityID() string   { return self.ConversationID }
func (self ConversationTarget) ActionPath() string { return "/messages/" + self.ConversationID }

type GigTarget struct{ GigID string }

func (self GigTarget) EntityType() string { return "gig" }
func (self GigTarget) EntityID() string   { return self.GigID }
func (self GigTarget) ActionPath() string { return "/gigs/" + self.GigID }

type UserTarget struct{ UserID string }

func (self UserTarget) EntityType() string { return "user" }
func (self UserTarget) EntityID() string   { return self.UserID }
func (self UserTarget) ActionPath() string { return "/profile/" + self.UserID }

func actionUrl(frontendUrl string, target Target) string {
	return strings.TrimSuffix(frontendUrl, "/") + target.ActionPath()
}
