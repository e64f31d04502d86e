package models

import (
	"fmt"
	"regexp"
	"strings"
)

// DeliveryMethod is how a completed order reaches the customer
type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

// ParseDeliveryMethod converts a string into a delivery method
func ParseDeliveryMethod(s string) (DeliveryMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "delivery", "deliver", "delivered":
		return DeliveryMethodDelivery, nil
	case "pickup", "pick up", "pick-up", "takeaway", "take away":
		return DeliveryMethodPickup, nil
	}
	return "", fmt.Errorf("unknown delivery method: %s", s)
}

// EstimatedTime returns the quoted wait for the method
func (m DeliveryMethod) EstimatedTime() string {
	if m == DeliveryMethodPickup {
		return "15-20 minutes"
	}
	return "30-45 minutes"
}

// DeliveryDetails are the customer details collected for a delivery
type DeliveryDetails struct {
	Name         string `json:"name,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// Empty reports whether no detail was captured
func (d DeliveryDetails) Empty() bool {
	return d.Name == "" && d.Phone == "" && d.Address == "" && d.Instructions == ""
}

// Merge fills the blank fields of d from other
func (d DeliveryDetails) Merge(other DeliveryDetails) DeliveryDetails {
	if d.Name == "" {
		d.Name = other.Name
	}
	if d.Phone == "" {
		d.Phone = other.Phone
	}
	if d.Address == "" {
		d.Address = other.Address
	}
	if d.Instructions == "" {
		d.Instructions = other.Instructions
	}
	return d
}

var (
	nameRe         = regexp.MustCompile(`(?i)\b(?:my name is|name is|i am|i'm|this is)\s+([a-z][a-z]+(?:\s+[a-z][a-z]+)?)`)
	phoneRe        = regexp.MustCompile(`(\+?\d[\d\-\s().]{8,}\d)`)
	addressRe      = regexp.MustCompile(`(?i)\b(?:address is|deliver(?:ed)? to|send (?:it )?to|at)\s+(\d+[^,.;]*?(?:street|st|avenue|ave|road|rd|lane|ln|drive|dr|boulevard|blvd|way|court|ct)\b[^,.;]*)`)
	instructionsRe = regexp.MustCompile(`(?i)\b(?:instructions?|note|please)\s*:?\s+((?:leave|ring|call|knock|don't|do not)[^.;]*)`)
)

// ExtractDeliveryDetails pulls name, phone, address and instructions out of free text
func ExtractDeliveryDetails(text string) DeliveryDetails {
	var d DeliveryDetails

	if m := nameRe.FindStringSubmatch(text); m != nil {
		d.Name = strings.TrimSpace(m[1])
	}
	if m := phoneRe.FindStringSubmatch(text); m != nil && ValidatePhone(m[1]) {
		d.Phone = strings.TrimSpace(m[1])
	}
	if m := addressRe.FindStringSubmatch(text); m != nil {
		d.Address = strings.TrimSpace(m[1])
	}
	if m := instructionsRe.FindStringSubmatch(text); m != nil {
		d.Instructions = strings.TrimSpace(m[1])
	}

	return d
}
