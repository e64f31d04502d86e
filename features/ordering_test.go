package features

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"bistro/internal/agents"
	"bistro/internal/models"

	"github.com/cucumber/godog"
)

type memoryStore struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (s *memoryStore) SaveOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, order)
	return nil
}

type orderingTestContext struct {
	store *memoryStore
	coord *agents.Coordinator
	reply *agents.Reply
}

func (c *orderingTestContext) reset() {
	c.store = &memoryStore{}
	c.coord = nil
	c.reply = nil
}

func (c *orderingTestContext) aNewConversation() error {
	c.coord = agents.NewCoordinator(nil,
		agents.WithSessionID("feature"),
		agents.WithStore(c.store),
	)
	return nil
}

func (c *orderingTestContext) theCustomerSays(ctx context.Context, input string) error {
	reply, err := c.coord.ProcessInput(ctx, input)
	if err != nil {
		return err
	}
	c.reply = reply
	return nil
}

func (c *orderingTestContext) theStageIs(stage string) error {
	if got := string(c.coord.State().Stage()); got != stage {
		return fmt.Errorf("expected stage %s, got %s", stage, got)
	}
	return nil
}

func (c *orderingTestContext) theReplyIsFromTheAgent(agent string) error {
	if c.reply == nil {
		return fmt.Errorf("no reply yet")
	}
	if got := string(c.reply.Agent); got != agent {
		return fmt.Errorf("expected reply from %s, got %s", agent, got)
	}
	return nil
}

func (c *orderingTestContext) theReplyContains(text string) error {
	if c.reply == nil {
		return fmt.Errorf("no reply yet")
	}
	if !strings.Contains(c.reply.Message, text) {
		return fmt.Errorf("expected reply to contain %q, got %q", text, c.reply.Message)
	}
	return nil
}

func (c *orderingTestContext) theOrderContainsItems(count int) error {
	if got := c.coord.State().Ledger().ItemCount(); got != count {
		return fmt.Errorf("expected %d items, got %d", count, got)
	}
	return nil
}

func (c *orderingTestContext) theOrderIncludes(name string) error {
	if !c.coord.State().Ledger().Contains(name) {
		return fmt.Errorf("expected the order to include %s", name)
	}
	return nil
}

func (c *orderingTestContext) theOrderDoesNotInclude(name string) error {
	if c.coord.State().Ledger().Contains(name) {
		return fmt.Errorf("expected the order not to include %s", name)
	}
	return nil
}

func (c *orderingTestContext) theOrderTotalIs(total string) error {
	if got := c.coord.State().Totals().Total.StringFixed(2); got != total {
		return fmt.Errorf("expected total %s, got %s", total, got)
	}
	return nil
}

func (c *orderingTestContext) anOrderWasSavedFor(method string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if len(c.store.orders) != 1 {
		return fmt.Errorf("expected 1 saved order, got %d", len(c.store.orders))
	}
	order := c.store.orders[0]
	if order.DeliveryMethod != method {
		return fmt.Errorf("expected %s order, got %s", method, order.DeliveryMethod)
	}
	if c.reply == nil || order.OrderID != c.reply.OrderID {
		return fmt.Errorf("saved order id does not match the confirmation")
	}
	return nil
}

func (c *orderingTestContext) noOrderWasSaved() error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if len(c.store.orders) != 0 {
		return fmt.Errorf("expected no saved orders, got %d", len(c.store.orders))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &orderingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^a new conversation$`, tc.aNewConversation)

	// When steps
	ctx.Step(`^the customer says "([^"]*)"$`, tc.theCustomerSays)

	// Then steps
	ctx.Step(`^the stage is "([^"]*)"$`, tc.theStageIs)
	ctx.Step(`^the reply is from the "([^"]*)" agent$`, tc.theReplyIsFromTheAgent)
	ctx.Step(`^the reply contains "([^"]*)"$`, tc.theReplyContains)
	ctx.Step(`^the order contains (\d+) items?$`, tc.theOrderContainsItems)
	ctx.Step(`^the order includes "([^"]*)"$`, tc.theOrderIncludes)
	ctx.Step(`^the order does not include "([^"]*)"$`, tc.theOrderDoesNotInclude)
	ctx.Step(`^the order total is "([^"]*)"$`, tc.theOrderTotalIs)
	ctx.Step(`^an order was saved for (pickup|delivery)$`, tc.anOrderWasSavedFor)
	ctx.Step(`^no order was saved$`, tc.noOrderWasSaved)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"ordering.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
