package models

import (
	"errors"
	"fmt"
)

// Stage represents the phase of a conversation
type Stage string

const (
	StageGreeting         Stage = "greeting"
	StageBrowsing         Stage = "browsing"
	StageOrdering         Stage = "ordering"
	StageUpselling        Stage = "upselling"
	StageFinalizing       Stage = "finalizing"
	StageAwaitingDelivery Stage = "awaiting_delivery"
	StageCompleted        Stage = "completed"
)

// Intent is what the customer wants to do with a message, or an internal conversation event
type Intent string

const (
	IntentBrowseMenu     Intent = "browse_menu"
	IntentPlaceOrder     Intent = "place_order"
	IntentModifyOrder    Intent = "modify_order"
	IntentFinalizeOrder  Intent = "finalize_order"
	IntentDeliveryMethod Intent = "delivery_method"
	IntentAskQuestion    Intent = "ask_question"
	IntentUnclear        Intent = "unclear"
	IntentCancelOrder    Intent = "cancel_order"
	IntentAcceptUpsell   Intent = "accept_upsell"
	IntentDeclineUpsell  Intent = "decline_upsell"

	// Internal events, never produced by the router
	IntentUpsellOffered    Intent = "upsell_offered"
	IntentSummaryPresented Intent = "summary_presented"
)

// Stage router errors
var (
	ErrConversationCompleted = errors.New("conversation is completed")
	ErrInvalidTransition     = errors.New("invalid stage transition")
)

var allStages = []Stage{
	StageGreeting,
	StageBrowsing,
	StageOrdering,
	StageUpselling,
	StageFinalizing,
	StageAwaitingDelivery,
	StageCompleted,
}

// allIntents fixes the order Allowed reports intents in
var allIntents = []Intent{
	IntentBrowseMenu,
	IntentPlaceOrder,
	IntentModifyOrder,
	IntentFinalizeOrder,
	IntentDeliveryMethod,
	IntentAskQuestion,
	IntentUnclear,
	IntentCancelOrder,
	IntentAcceptUpsell,
	IntentDeclineUpsell,
	IntentUpsellOffered,
	IntentSummaryPresented,
}

// ParseStage converts a string into a known stage
func ParseStage(s string) (Stage, error) {
	for _, stage := range allStages {
		if string(stage) == s {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage: %s", s)
}

// ParseIntent converts a string into a known customer intent
func ParseIntent(s string) (Intent, error) {
	switch i := Intent(s); i {
	case IntentBrowseMenu, IntentPlaceOrder, IntentModifyOrder, IntentFinalizeOrder,
		IntentDeliveryMethod, IntentAskQuestion, IntentUnclear, IntentCancelOrder,
		IntentAcceptUpsell, IntentDeclineUpsell:
		return i, nil
	}
	return "", fmt.Errorf("unknown intent: %s", s)
}

// StageRouter is the finite state machine over (stage, intent)
type StageRouter struct {
	transitions map[Stage]map[Intent]Stage
}

// NewStageRouter builds the transition table.
// Cancel goes back to greeting from everywhere but completed, which is terminal.
func NewStageRouter() *StageRouter {
	t := make(map[Stage]map[Intent]Stage)
	for _, stage := range allStages {
		if stage == StageCompleted {
			continue
		}
		t[stage] = map[Intent]Stage{
			IntentCancelOrder:   StageGreeting,
			IntentBrowseMenu:    StageBrowsing,
			IntentPlaceOrder:    StageOrdering,
			IntentModifyOrder:   StageOrdering,
			IntentAskQuestion:   stage,
			IntentUnclear:       stage,
			IntentFinalizeOrder: StageFinalizing,
		}
	}

	delete(t[StageGreeting], IntentFinalizeOrder)

	t[StageOrdering][IntentUpsellOffered] = StageUpselling
	t[StageUpselling][IntentAcceptUpsell] = StageOrdering
	t[StageUpselling][IntentDeclineUpsell] = StageOrdering
	t[StageFinalizing][IntentSummaryPresented] = StageAwaitingDelivery
	t[StageFinalizing][IntentDeliveryMethod] = StageCompleted
	t[StageAwaitingDelivery][IntentDeliveryMethod] = StageCompleted
	t[StageAwaitingDelivery][IntentModifyOrder] = StageAwaitingDelivery

	return &StageRouter{transitions: t}
}

// Next returns the stage reached from stage on intent
func (r *StageRouter) Next(stage Stage, intent Intent) (Stage, error) {
	if stage == StageCompleted {
		return StageCompleted, ErrConversationCompleted
	}

	next, ok := r.transitions[stage][intent]
	if !ok {
		return stage, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, stage, intent)
	}
	return next, nil
}

// Allowed lists the intents accepted in stage, always in the same order
func (r *StageRouter) Allowed(stage Stage) []Intent {
	accepted := r.transitions[stage]
	intents := make([]Intent, 0, len(accepted))
	for _, intent := range allIntents {
		if _, ok := accepted[intent]; ok {
			intents = append(intents, intent)
		}
	}
	return intents
}
