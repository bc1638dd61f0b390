package fsm

import (
	"fmt"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Entity string

const (
	EntityJob         Entity = "job"
	EntityMilestone   Entity = "milestone"
	EntityBid         Entity = "bid"
	EntityApplication Entity = "application"
	EntityEscrow      Entity = "escrow"
	EntityReceipt     Entity = "receipt"
)

type Event string

type key struct {
	entity Entity
	state  string
}

// Transition table: (entity, current state) -> allowed events, each leading to one target state.
// Safe for concurrent reads once built.
type Table struct {
	transitions map[key]map[Event]string
}

func New() *Table {
	return &Table{transitions: make(map[key]map[Event]string)}
}

func (self *Table) Allow(entity Entity, event Event, to string, from ...string) *Table {
	for _, f := range from {
		k := key{entity, f}
		events, ok := self.transitions[k]
		if !ok {
			events = make(map[Event]string)
			self.transitions[k] = events
		}
		events[event] = to
	}
	return self
}

// Target state of the event, INVALID_TRANSITION if the event isn't allowed
func (self *Table) Fire(entity Entity, from string, event Event) (to string, err error) {
	to, ok := self.transitions[key{entity, from}][event]
	if !ok {
		return "", apperr.InvalidTransition(string(entity), from, string(event))
	}
	return to, nil
}

// Checks moving from one state to another.
// Moving to the current state is allowed and reported as noop.
func (self *Table) Check(entity Entity, from, to string) (noop bool, err error) {
	if from == to {
		return true, nil
	}
	for _, target := range self.transitions[key{entity, from}] {
		if target == to {
			return false, nil
		}
	}
	return false, apperr.InvalidTransition(string(entity), from, to)
}

// Event that leads from one state to another
func (self *Table) EventFor(entity Entity, from, to string) (Event, error) {
	events := self.transitions[key{entity, from}]
	keys := maps.Keys(events)
	slices.Sort(keys)
	for _, event := range keys {
		if events[event] == to {
			return event, nil
		}
	}
	return "", apperr.InvalidTransition(string(entity), from, to)
}

// Events allowed in the state, sorted
func (self *Table) Events(entity Entity, from string) []Event {
	out := maps.Keys(self.transitions[key{entity, from}])
	slices.Sort(out)
	return out
}

func (self *Table) IsTerminal(entity Entity, state string) bool {
	return len(self.transitions[key{entity, state}]) == 0
}

func (self *Table) String() string {
	return fmt.Sprintf("fsm.Table{%d states}", len(self.transitions))
}

// Typed helper for string based state enums
func Check[S ~string](table *Table, entity Entity, from, to S) (bool, error) {
	return table.Check(entity, string(from), string(to))
}

func Fire[S ~string](table *Table, entity Entity, from S, event Event) (S, error) {
	to, err := table.Fire(entity, string(from), event)
	return S(to), err
}
