package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageRouter_HappyPath(t *testing.T) {
	r := NewStageRouter()

	steps := []struct {
		intent Intent
		want   Stage
	}{
		{IntentBrowseMenu, StageBrowsing},
		{IntentPlaceOrder, StageOrdering},
		{IntentUpsellOffered, StageUpselling},
		{IntentAcceptUpsell, StageOrdering},
		{IntentFinalizeOrder, StageFinalizing},
		{IntentSummaryPresented, StageAwaitingDelivery},
		{IntentDeliveryMethod, StageCompleted},
	}

	stage := StageGreeting
	for _, step := range steps {
		next, err := r.Next(stage, step.intent)
		require.NoError(t, err, "%s on %s", stage, step.intent)
		assert.Equal(t, step.want, next)
		stage = next
	}
}

func TestStageRouter_CompletedIsTerminal(t *testing.T) {
	r := NewStageRouter()

	for _, intent := range []Intent{IntentCancelOrder, IntentPlaceOrder, IntentBrowseMenu, IntentModifyOrder, IntentDeliveryMethod} {
		next, err := r.Next(StageCompleted, intent)
		assert.ErrorIs(t, err, ErrConversationCompleted)
		assert.Equal(t, StageCompleted, next)
	}
	assert.Empty(t, r.Allowed(StageCompleted))
}

func TestStageRouter_AllowedIsOrdered(t *testing.T) {
	r := NewStageRouter()

	want := []Intent{
		IntentBrowseMenu,
		IntentPlaceOrder,
		IntentModifyOrder,
		IntentAskQuestion,
		IntentUnclear,
		IntentCancelOrder,
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, r.Allowed(StageGreeting))
	}

	assert.Equal(t, []Intent{
		IntentBrowseMenu,
		IntentPlaceOrder,
		IntentModifyOrder,
		IntentFinalizeOrder,
		IntentAskQuestion,
		IntentUnclear,
		IntentCancelOrder,
		IntentUpsellOffered,
	}, r.Allowed(StageOrdering))
}

func TestStageRouter_CancelFromAnyStage(t *testing.T) {
	r := NewStageRouter()

	for _, stage := range []Stage{StageGreeting, StageBrowsing, StageOrdering, StageUpselling, StageFinalizing, StageAwaitingDelivery} {
		next, err := r.Next(stage, IntentCancelOrder)
		require.NoError(t, err)
		assert.Equal(t, StageGreeting, next, "cancel from %s", stage)
	}
}

func TestStageRouter_Regression(t *testing.T) {
	r := NewStageRouter()

	next, err := r.Next(StageAwaitingDelivery, IntentModifyOrder)
	require.NoError(t, err)
	assert.Equal(t, StageAwaitingDelivery, next)

	next, err = r.Next(StageAwaitingDelivery, IntentPlaceOrder)
	require.NoError(t, err)
	assert.Equal(t, StageOrdering, next)

	next, err = r.Next(StageFinalizing, IntentBrowseMenu)
	require.NoError(t, err)
	assert.Equal(t, StageBrowsing, next)
}

func TestStageRouter_QuestionsKeepStage(t *testing.T) {
	r := NewStageRouter()

	for _, stage := range []Stage{StageGreeting, StageOrdering, StageAwaitingDelivery} {
		for _, intent := range []Intent{IntentAskQuestion, IntentUnclear} {
			next, err := r.Next(stage, intent)
			require.NoError(t, err)
			assert.Equal(t, stage, next)
		}
	}
}

func TestStageRouter_InvalidTransitions(t *testing.T) {
	r := NewStageRouter()

	cases := []struct {
		stage  Stage
		intent Intent
	}{
		{StageGreeting, IntentFinalizeOrder},
		{StageGreeting, IntentDeliveryMethod},
		{StageBrowsing, IntentAcceptUpsell},
		{StageOrdering, IntentSummaryPresented},
		{StageBrowsing, IntentUpsellOffered},
	}

	for _, tc := range cases {
		next, err := r.Next(tc.stage, tc.intent)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s on %s", tc.stage, tc.intent)
		assert.Equal(t, tc.stage, next)
	}
}

func TestParseStageAndIntent(t *testing.T) {
	stage, err := ParseStage("awaiting_delivery")
	require.NoError(t, err)
	assert.Equal(t, StageAwaitingDelivery, stage)

	_, err = ParseStage("dessert")
	assert.Error(t, err)

	intent, err := ParseIntent("cancel_order")
	require.NoError(t, err)
	assert.Equal(t, IntentCancelOrder, intent)

	_, err = ParseIntent("upsell_offered")
	assert.Error(t, err, "internal events are not parsed from router output")
}
