package services

import (
	"fmt"

	"github.com/desertthunder/tunegate/internal/models"
	"github.com/desertthunder/tunegate/internal/shared"
)

var transitions = map[models.FlowStatus][]models.FlowStatus{
	models.FlowStarted:      {models.FlowCodeReceived},
	models.FlowCodeReceived: {models.FlowTokenExchanged, models.FlowFailed},
}

// Flow tracks one authorization attempt from redirect to token exchange.
//
//	STARTED -> CODE_RECEIVED -> TOKEN_EXCHANGED
//	                 \
//	                  +-----> FAILED
//
// Every callback passes through CODE_RECEIVED before it can fail.
type Flow struct {
	SessionID string

	status  models.FlowStatus
	history []models.FlowStatus
	err     error
}

// NewFlow starts a flow in [models.FlowStarted].
func NewFlow(sessionID string) *Flow {
	return &Flow{
		SessionID: sessionID,
		status:    models.FlowStarted,
		history:   []models.FlowStatus{models.FlowStarted},
	}
}

// FailedFlow returns a flow that never started, as for a callback with no pending request.
func FailedFlow(sessionID string, err error) *Flow {
	return &Flow{
		SessionID: sessionID,
		status:    models.FlowFailed,
		history:   []models.FlowStatus{models.FlowFailed},
		err:       err,
	}
}

func (f *Flow) Status() models.FlowStatus { return f.status }

// Err is the reason a failed flow failed.
func (f *Flow) Err() error { return f.err }

// History lists every status the flow has held, oldest first.
func (f *Flow) History() []models.FlowStatus {
	out := make([]models.FlowStatus, len(f.history))
	copy(out, f.history)
	return out
}

// ReceiveCode records that the callback was hit, before its parameters are checked.
func (f *Flow) ReceiveCode() error {
	return f.transition(models.FlowCodeReceived)
}

// Complete records that tokens were exchanged and stored.
func (f *Flow) Complete() error {
	return f.transition(models.FlowTokenExchanged)
}

// Fail moves a non-terminal flow to [models.FlowFailed].
func (f *Flow) Fail(err error) error {
	if terr := f.transition(models.FlowFailed); terr != nil {
		return terr
	}
	f.err = err
	return nil
}

func (f *Flow) transition(to models.FlowStatus) error {
	for _, allowed := range transitions[f.status] {
		if allowed == to {
			f.status = to
			f.history = append(f.history, to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, f.status, to)
}
