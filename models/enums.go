package models

import "errors"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusScheduled  OrderStatus = "SCHEDULED"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusComplete   OrderStatus = "COMPLETE"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusScheduled, OrderStatusInProgress,
		OrderStatusComplete, OrderStatusCancelled:
		return OrderStatus(s), nil
	}
	return "", errors.New("invalid order status")
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusComplete || s == OrderStatusCancelled
}

// CanTransitionTo validates the order state machine:
// PENDING -> SCHEDULED -> IN_PROGRESS -> COMPLETE, CANCELLED from any non-terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if next == OrderStatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case OrderStatusPending:
		return next == OrderStatusScheduled
	case OrderStatusScheduled:
		return next == OrderStatusInProgress
	case OrderStatusInProgress:
		return next == OrderStatusComplete
	}
	return false
}

type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "DRAFT"
	ScheduleStatusCommitted ScheduleStatus = "COMMITTED"
)

type ScenarioType string

const (
	ScenarioTypeOvertime         ScenarioType = "OVERTIME"
	ScenarioTypeSetupReduction   ScenarioType = "SETUP_REDUCTION"
	ScenarioTypeSubcontract      ScenarioType = "SUBCONTRACT"
	ScenarioTypeNewLine          ScenarioType = "NEW_LINE"
	ScenarioTypeThreeShift       ScenarioType = "THREE_SHIFT"
	ScenarioTypeLeadTimeDelay    ScenarioType = "LEAD_TIME_DELAY"
	ScenarioTypeAbsenteeismSpike ScenarioType = "ABSENTEEISM_SPIKE"
	ScenarioTypeMultiConstraint  ScenarioType = "MULTI_CONSTRAINT"
)

func ParseScenarioType(s string) (ScenarioType, error) {
	switch ScenarioType(s) {
	case ScenarioTypeOvertime, ScenarioTypeSetupReduction, ScenarioTypeSubcontract,
		ScenarioTypeNewLine, ScenarioTypeThreeShift, ScenarioTypeLeadTimeDelay,
		ScenarioTypeAbsenteeismSpike, ScenarioTypeMultiConstraint:
		return ScenarioType(s), nil
	}
	return "", ErrInvalidScenarioType
}

// Planning event types published through the bus and the outbox.
type PlanningEventType string

const (
	EventComponentShortageDetected PlanningEventType = "ComponentShortageDetected"
	EventCapacityAnalysisCompleted PlanningEventType = "CapacityAnalysisCompleted"
	EventScheduleCommitted         PlanningEventType = "ScheduleCommitted"
	EventCapacityScenarioCreated   PlanningEventType = "CapacityScenarioCreated"
	EventKPIVarianceAlert          PlanningEventType = "KPIVarianceAlert"
)
