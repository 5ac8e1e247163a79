package orchestratornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/thoriqalqi/VISTARA/agent/contract"
	statex "github.com/thoriqalqi/VISTARA/agent/state"
)

type GraphInput = contractx.TurnInput

type GraphOutput = contractx.TurnOutput

// GraphState is threaded through every node of one chat turn.
type GraphState struct {
	UserID         string
	ConversationID string
	Text           string
	Now            time.Time

	Conversation *statex.Conversation
	Prior        contractx.BusinessContext
	Decision     contractx.RoutingDecision
	Context      contractx.BusinessContext
	Responses    []contractx.AgentResponse
}

// ValidateRequest rejects boundary violations before any model call.
// A blank conversation id starts a new conversation under newID().
func ValidateRequest(in GraphInput, nowFn func() time.Time, newID func() string) (*GraphState, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, contractx.ErrUnauthenticated
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is required", contractx.ErrInvalidArgument)
	}

	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		conversationID = newID()
	}

	return &GraphState{
		UserID:         userID,
		ConversationID: conversationID,
		Text:           text,
		Now:            nowFn().UTC(),
	}, nil
}
