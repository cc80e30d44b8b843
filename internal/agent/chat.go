// internal/agent/chat.go
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"agenthub/internal/models"
	"agenthub/internal/runtime"
)

// Chatter is the slice of the runtime client the dispatcher needs.
type Chatter interface {
	Chat(ctx context.Context, principalID, message string) (runtime.ChatResult, error)
	BossChat(ctx context.Context, principalID, message string) (runtime.ChatResult, error)
}

// ChatReply is what a successful dispatch returns to the handler.
type ChatReply struct {
	Response  string    `json:"response"`
	AgentID   string    `json:"agentId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Dispatcher routes a principal's free-form message to its own agent.
// Chat is latency-sensitive and user-facing, so a failed dispatch is
// surfaced for the user to retry, never retried automatically.
type Dispatcher struct {
	coord *Coordinator
	rt    Chatter
	now   func() time.Time
}

func NewDispatcher(coord *Coordinator, rt Chatter) *Dispatcher {
	return &Dispatcher{coord: coord, rt: rt, now: time.Now}
}

func (d *Dispatcher) Chat(ctx context.Context, kind models.PrincipalKind, id uuid.UUID, message string) (ChatReply, error) {
	p, err := d.coord.loadPrincipal(ctx, kind, id)
	if err != nil {
		return ChatReply{}, err
	}
	if p.Agent.Status == models.AgentNotCreated {
		return ChatReply{}, models.ErrAgentNotReady
	}
	if strings.TrimSpace(message) == "" {
		return ChatReply{}, models.ErrEmptyMessage
	}

	var result runtime.ChatResult
	if kind == models.KindBoss {
		result, err = d.rt.BossChat(ctx, id.String(), message)
	} else {
		result, err = d.rt.Chat(ctx, id.String(), message)
	}
	if err != nil {
		slog.ErrorContext(ctx, "agent chat failed", "kind", string(kind), "principal_id", id.String(), "err", err)
		return ChatReply{}, fmt.Errorf("%w: %v", models.ErrAgentCommunication, err)
	}

	return ChatReply{
		Response:  result.Response,
		AgentID:   result.AgentID,
		Timestamp: d.now(),
	}, nil
}
