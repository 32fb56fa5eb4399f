package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"autocare/internal/advisor"
	"autocare/internal/core"
)

const (
	// systemInstruction frames the assistant's role for every turn.
	systemInstruction = "You are a professional car mechanic and financial advisor for vehicles. Your goal is to help the user maintain their car efficiently."

	// emptyReplyFallback replaces a successful reply with no text.
	emptyReplyFallback = "Sorry, I could not come up with a reply. Please try again."

	// failureMessage is appended on any backend failure. It is static and
	// never carries raw error detail into the transcript.
	failureMessage = "Something went wrong while contacting the AI service. Check your connection or try again later."

	// recentExpenseLimit caps how many records go into the context block.
	recentExpenseLimit = 5
)

// ContextSource provides the fresh vehicle and expense snapshot for each
// outgoing turn. storage.Repository satisfies it.
type ContextSource interface {
	ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
	Vehicle(ctx context.Context) (core.VehicleProfile, error)
}

// Controller drives sessions: it builds each outgoing turn's context and
// merges backend replies or failure placeholders into the transcript.
type Controller struct {
	backend advisor.Backend
	source  ContextSource
	now     func() time.Time
}

func NewController(backend advisor.Backend, source ContextSource) *Controller {
	return &Controller{backend: backend, source: source, now: time.Now}
}

// Send runs one conversation turn. It returns false (a no-op, transcript
// unchanged) for empty input or when a request is already outstanding.
// An accepted send always grows the transcript by exactly two turns: the
// user turn and either the reply or the fixed failure message.
func (c *Controller) Send(ctx context.Context, s *Session, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if !s.begin(text, c.now()) {
		return false
	}

	reply, err := c.requestReply(ctx, s, text)
	if err != nil {
		slog.WarnContext(ctx, "Chat turn failed", "error", err)
		s.finish(failureMessage, c.now())
		return true
	}
	if reply == "" {
		reply = emptyReplyFallback
	}
	s.finish(reply, c.now())
	return true
}

func (c *Controller) requestReply(ctx context.Context, s *Session, text string) (string, error) {
	contextBlock, err := c.buildContext(ctx)
	if err != nil {
		return "", err
	}

	// Context block first, then the prior transcript in order, then the
	// new user turn.
	prior := s.priorTurns()
	turns := make([]advisor.Turn, 0, len(prior)+2)
	turns = append(turns, advisor.Turn{Role: "user", Text: contextBlock})
	for _, t := range prior {
		role := "user"
		if t.Speaker == core.SpeakerAssistant {
			role = "model"
		}
		turns = append(turns, advisor.Turn{Role: role, Text: t.Text})
	}
	turns = append(turns, advisor.Turn{Role: "user", Text: text})

	return c.backend.GenerateChat(ctx, systemInstruction, turns)
}

// buildContext assembles the per-turn context block from the latest
// vehicle profile and expense collection. It is rebuilt fresh on every
// turn so edits between turns are reflected.
func (c *Controller) buildContext(ctx context.Context) (string, error) {
	vehicle, err := c.source.Vehicle(ctx)
	if err != nil {
		return "", fmt.Errorf("load vehicle: %w", err)
	}
	expenses, err := c.source.ListExpenses(ctx)
	if err != nil {
		return "", fmt.Errorf("load expenses: %w", err)
	}

	recent := expenses
	if len(recent) > recentExpenseLimit {
		recent = recent[len(recent)-recentExpenseLimit:]
	}
	serialized, err := json.Marshal(recent)
	if err != nil {
		return "", fmt.Errorf("serialize recent expenses: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are the expert vehicle assistant inside the AutoCare tracker.\n")
	b.WriteString("User data:\n")
	fmt.Fprintf(&b, "Vehicle: %s %s (%s).\n", vehicle.Brand, vehicle.Model, vehicle.Year)
	fmt.Fprintf(&b, "Number of expense records: %d.\n", len(expenses))
	fmt.Fprintf(&b, "Most recent expenses: %s.\n", serialized)
	b.WriteString("Answer politely, briefly and to the point. Help the user save money and keep the car in good shape.")
	return b.String(), nil
}
