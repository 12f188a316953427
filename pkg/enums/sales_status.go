package enums

import (
	"fmt"
	"strings"
)

// SalesStatus tracks the commercial lifecycle of a sale.
type SalesStatus string

const (
	SalesStatusPending   SalesStatus = "Pending"
	SalesStatusCompleted SalesStatus = "Completed"
	SalesStatusRefunded  SalesStatus = "Refunded"
	SalesStatusCancelled SalesStatus = "Cancelled"
)

var validSalesStatuses = []SalesStatus{
	SalesStatusPending,
	SalesStatusCompleted,
	SalesStatusRefunded,
	SalesStatusCancelled,
}

func (s SalesStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SalesStatus.
func (s SalesStatus) IsValid() bool {
	for _, candidate := range validSalesStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSalesStatus converts raw input into a SalesStatus.
func ParseSalesStatus(value string) (SalesStatus, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validSalesStatuses {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sales status %q", value)
}
