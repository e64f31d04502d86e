package evaluation

import (
	"bistro/internal/agents"
	"bistro/internal/models"
)

// DefaultScenarios are the built-in scripted conversations
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			ID:          "pickup_order",
			Name:        "Pickup Order",
			Type:        "ordering",
			Description: "Browse the menu, order burgers, accept an upsell and pick the order up.",
			Steps: []Step{
				{Input: "Hi", Stage: models.StageGreeting, Contains: agents.GreetingMessage},
				{Input: "show me the menu", Stage: models.StageBrowsing},
				{Input: "I want 2 burgers", Stage: models.StageUpselling, Agent: agents.RoleOrder},
				{Input: "yes", Stage: models.StageOrdering, Agent: agents.RoleUpselling},
				{Input: "That's all", Stage: models.StageAwaitingDelivery, Contains: agents.MessageAskDelivery},
				{Input: "pickup please", Stage: models.StageCompleted, Contains: "Estimated pickup time"},
			},
			Outcome: Outcome{Stage: models.StageCompleted, OrderPlaced: true, Items: 3, Method: models.DeliveryMethodPickup},
		},
		{
			ID:          "delivery_order",
			Name:        "Delivery Order",
			Type:        "ordering",
			Description: "Order a pizza, decline the upsell and have it delivered.",
			Steps: []Step{
				{Input: "Id like a pizza", Stage: models.StageUpselling},
				{Input: "no thanks", Stage: models.StageOrdering},
				{Input: "checkout"},
				{Input: "please deliver to 42 Oak Avenue", Stage: models.StageCompleted, Contains: "Estimated delivery time"},
			},
			Outcome: Outcome{Stage: models.StageCompleted, OrderPlaced: true, Items: 1, Method: models.DeliveryMethodDelivery},
		},
		{
			ID:          "modify_order",
			Name:        "Modify Order",
			Type:        "editing",
			Description: "Accept an upsell and then take the extra item back out.",
			Steps: []Step{
				{Input: "I want 2 burgers", Stage: models.StageUpselling},
				{Input: "yes", Agent: agents.RoleUpselling},
				{Input: "remove the fries", Intent: models.IntentModifyOrder},
			},
			Outcome: Outcome{Items: 2},
		},
		{
			ID:          "cancel_order",
			Name:        "Cancel Order",
			Type:        "editing",
			Description: "Start an order and cancel it.",
			Steps: []Step{
				{Input: "I want a pizza", Stage: models.StageUpselling},
				{Input: "cancel my order", Stage: models.StageGreeting, Contains: agents.MessageCancelled},
			},
			Outcome: Outcome{Stage: models.StageGreeting, Items: 0},
		},
		{
			ID:          "empty_checkout",
			Name:        "Empty Checkout",
			Type:        "edge_case",
			Description: "Try to check out before ordering anything.",
			Steps: []Step{
				{Input: "checkout", Stage: models.StageGreeting, Contains: agents.MessageEmptyOrder},
			},
			Outcome: Outcome{Stage: models.StageGreeting, Items: 0},
		},
	}
}
