package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	AccountRequestApproved = "account_request.approved"
	AccountRequestRejected = "account_request.rejected"
)

type AccountRequestDecidedData struct {
	RequestID       int64
	Name            string
	Email           string
	Rank            string
	Company         string
	ActorID         int64
	ActorName       string
	ActorRole       string
	RejectionReason string
	DecidedAt       time.Time
}

type AccountRequestDecidedEvent struct {
	BaseEvent
	Decision AccountRequestDecidedData
}

func NewAccountRequestApprovedEvent(data AccountRequestDecidedData) AccountRequestDecidedEvent {
	return newDecidedEvent(AccountRequestApproved, data)
}

func NewAccountRequestRejectedEvent(data AccountRequestDecidedData) AccountRequestDecidedEvent {
	return newDecidedEvent(AccountRequestRejected, data)
}

func newDecidedEvent(eventType string, data AccountRequestDecidedData) AccountRequestDecidedEvent {
	return AccountRequestDecidedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: data.DecidedAt,
			Data: map[string]interface{}{
				"request_id": data.RequestID,
				"actor_id":   data.ActorID,
			},
		},
		Decision: data,
	}
}
