package agents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"bistro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type memoryStore struct {
	mu     sync.Mutex
	orders []*models.Order
	err    error
}

func (s *memoryStore) SaveOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.orders = append(s.orders, order)
	return nil
}

type CoordinatorTestSuite struct {
	suite.Suite
	ctx     context.Context
	store   *memoryStore
	metrics *countingMetrics
	coord   *Coordinator
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &memoryStore{}
	s.metrics = &countingMetrics{}
	s.coord = NewCoordinator(nil,
		WithStore(s.store),
		WithMetrics(s.metrics),
		WithSessionID("session-1"),
	)
}

func (s *CoordinatorTestSuite) say(input string) *Reply {
	reply, err := s.coord.ProcessInput(s.ctx, input)
	s.Require().NoError(err)
	return reply
}

func (s *CoordinatorTestSuite) TestPickupOrder() {
	reply := s.say("Hi")
	s.Equal(GreetingMessage, reply.Message)
	s.Equal(models.StageGreeting, reply.Stage)

	reply = s.say("show me the menu")
	s.Equal(models.StageBrowsing, reply.Stage)
	s.True(s.coord.State().MenuDisplayed)

	reply = s.say("I want 2 burgers")
	s.Equal(RoleOrder, reply.Agent)
	s.Equal(models.StageUpselling, reply.Stage)
	s.Contains(reply.Message, "Great! I've added 1 item(s) to your order.")
	s.Contains(reply.Message, "Based on your order, I'd recommend adding: French Fries, Onion Rings, Coca Cola.")
	s.Equal(1, s.coord.State().UpsellAttempts)

	reply = s.say("yes")
	s.Equal(RoleUpselling, reply.Agent)
	s.Equal(models.StageOrdering, reply.Stage)
	s.True(s.coord.State().Ledger().Contains("French Fries"))

	reply = s.say("remove the fries")
	s.Equal(models.IntentModifyOrder, reply.Intent)
	s.False(s.coord.State().Ledger().Contains("French Fries"))

	reply = s.say("That's all")
	s.Equal(models.StageAwaitingDelivery, reply.Stage)
	s.True(strings.HasPrefix(reply.Message, "FINAL ORDER CONFIRMATION"))
	s.Contains(reply.Message, "Total: $28.06")
	s.True(strings.HasSuffix(reply.Message, MessageAskDelivery))

	reply = s.say("remove one burger")
	s.Equal(models.StageAwaitingDelivery, reply.Stage)
	s.True(strings.HasSuffix(reply.Message, MessageProceed))
	s.Equal(1, s.coord.State().Ledger().ItemCount())

	reply = s.say("pickup please")
	s.Equal(models.StageCompleted, reply.Stage)
	s.NotEmpty(reply.OrderID)
	s.Contains(reply.Message, "Order ID: "+reply.OrderID)
	s.Contains(reply.Message, "Order Total: $14.03")
	s.Contains(reply.Message, "Estimated pickup time: 15-20 minutes")

	s.Require().Len(s.store.orders, 1)
	saved := s.store.orders[0]
	s.Equal(reply.OrderID, saved.OrderID)
	s.Equal("session-1", saved.SessionID)

	reply = s.say("add a coke")
	s.Equal(MessageCompleted, reply.Message)
	s.Equal(1, s.coord.State().Ledger().ItemCount())

	s.Equal(1, s.metrics.offers)
	s.Equal(1, s.metrics.accepted)
	s.Equal(1, s.metrics.completed)
	s.Equal("pickup", s.metrics.lastMethod)
	s.Equal(9, s.metrics.turns)

	analytics := s.coord.Analytics()
	s.Equal("session-1", analytics.SessionID)
	s.Equal(9, analytics.Interactions)
	s.Equal(1, analytics.ItemCount)
	s.Equal("14.03", analytics.OrderValue.StringFixed(2))
	s.Equal("12.99", analytics.AverageItemPrice.StringFixed(2))
	s.Equal(models.StageCompleted, analytics.Stage)
}

func (s *CoordinatorTestSuite) TestDeliveryOrder() {
	s.say("Id like a pizza")
	s.Equal(models.StageUpselling, s.coord.State().Stage())

	reply := s.say("no thanks")
	s.Equal(models.StageOrdering, reply.Stage)
	s.True(s.coord.State().IsDeclined("Garlic Bread"))

	s.say("checkout")
	reply = s.say("also add a coke")
	s.Equal(models.StageAwaitingDelivery, reply.Stage)
	s.True(strings.HasSuffix(reply.Message, MessageProceed))
	s.True(s.coord.State().Ledger().Contains("Coca Cola"))

	reply = s.say("please deliver to 42 Oak Avenue")
	s.Equal(models.StageCompleted, reply.Stage)
	s.Contains(reply.Message, "Perfect! Your order will be delivered.")
	s.Contains(reply.Message, "Estimated delivery time: 30-45 minutes")
	s.Equal(models.DeliveryMethodDelivery, s.coord.State().DeliveryMethod)
	s.Equal("42 Oak Avenue", s.coord.State().DeliveryDetails.Address)
	s.Equal(1, s.metrics.declined)
}

func (s *CoordinatorTestSuite) TestCancel() {
	s.say("I want a pizza")
	reply := s.say("cancel my order")
	s.Equal(MessageCancelled, reply.Message)
	s.Equal(models.StageGreeting, reply.Stage)
	s.True(s.coord.State().Ledger().Empty())
	s.Equal(models.OrderStatusCancelled, s.coord.State().OrderStatus)
	s.Equal(1, s.metrics.cancelled)
}

func (s *CoordinatorTestSuite) TestFinalizeEmptyOrder() {
	reply := s.say("checkout")
	s.Equal(MessageEmptyOrder, reply.Message)
	s.Equal(models.StageGreeting, reply.Stage)
}

func (s *CoordinatorTestSuite) TestClarification() {
	reply := s.say("I want something")
	s.Equal(RoleRouter, reply.Agent)
	s.Equal("What would you like to order? You can ask to see the menu anytime.", reply.Message)
	s.Len(s.coord.State().PendingClarifications, 1)

	s.say("show me the menu")
	s.Empty(s.coord.State().PendingClarifications)
}

func (s *CoordinatorTestSuite) TestEmptyInput() {
	reply := s.say("   ")
	s.Equal(MessageEmptyInput, reply.Message)
	s.Empty(s.coord.State().History)
}

func (s *CoordinatorTestSuite) TestStoreFailureStillCompletes() {
	s.store.err = errors.New("disk full")
	s.say("I want a burger")
	s.say("no thanks")
	s.say("thats all")

	reply := s.say("pickup")
	s.Equal(models.StageCompleted, reply.Stage)
	s.NotEmpty(reply.OrderID)
	s.Empty(s.store.orders)
}

func (s *CoordinatorTestSuite) TestHugeQuantityIsRejected() {
	reply := s.say("I want 9223372036854775807 classic burgers")
	s.Contains(reply.Message, "I can only take up to 99 of each item")
	s.NotContains(reply.Message, "Great!")
	s.True(s.coord.State().Ledger().Empty())

	s.say("I want 5 classic burgers")
	lines := s.coord.State().Ledger().Lines()
	s.Require().Len(lines, 1)
	s.Equal(5, lines[0].Quantity)
	s.Equal("70.15", s.coord.State().Totals().Total.StringFixed(2))
}

func (s *CoordinatorTestSuite) TestReset() {
	s.say("I want a burger")
	s.coord.Reset()
	s.Equal(models.StageGreeting, s.coord.State().Stage())
	s.Empty(s.coord.OrderDetails().Items)
}

func TestCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

func TestCoordinator_EscalatesAfterRepeatedModelFailures(t *testing.T) {
	model := new(MockLLM)
	model.On("GenerateContent", mock.Anything, mock.Anything).Return(nil, errors.New("service unavailable"))
	metrics := &countingMetrics{}
	coord := NewCoordinator(model, WithMetrics(metrics))
	ctx := context.Background()

	reply, err := coord.ProcessInput(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, GreetingMessage, reply.Message)
	assert.False(t, reply.NeedsHuman)
	assert.Equal(t, 2, coord.State().ErrorCount)

	reply, err = coord.ProcessInput(ctx, "hello")
	require.NoError(t, err)
	assert.True(t, reply.NeedsHuman)
	assert.Equal(t, MessageHumanHandoff, reply.Message)
	assert.Equal(t, RoleHuman, reply.Agent)
	assert.Equal(t, 1, metrics.interventions)

	reply, err = coord.ProcessInput(ctx, "I want a burger")
	require.NoError(t, err)
	assert.Equal(t, MessageHumanHandoff, reply.Message)
	assert.True(t, coord.State().Ledger().Empty())

	coord.ResolveIntervention()
	assert.Equal(t, 0, coord.State().ErrorCount)
	assert.Equal(t, 1, coord.Analytics().HumanInterventions)
}

func TestCoordinator_CustomerAsksForHuman(t *testing.T) {
	model := new(MockLLM)
	model.expectReply(`{"agent": "human", "intent": "unclear", "confidence": 0.9}`)
	coord := NewCoordinator(model)

	reply, err := coord.ProcessInput(context.Background(), "let me talk to a person")
	require.NoError(t, err)
	assert.Equal(t, MessageHumanHandoff, reply.Message)
	assert.True(t, reply.NeedsHuman)
	assert.Equal(t, "Customer requested human assistance", coord.State().InterventionReason)
}

func TestCoordinator_CancelledContext(t *testing.T) {
	coord := NewCoordinator(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := coord.ProcessInput(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, coord.State().History)
}

func TestCoordinator_CapturesCustomerName(t *testing.T) {
	coord := NewCoordinator(nil)

	_, err := coord.ProcessInput(context.Background(), "hello, my name is Ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", coord.State().CustomerName)
}
