// Package question presents a multiple-choice question, captures one answer
// and reports the verdict exactly once.
package question

import (
	"errors"
	"log/slog"
)

// Surface is the question UI collaborator.
type Surface interface {
	Show(prompt string, choices []string)
	Hide()
	MarkChoice(position int, correct bool)
}

type Question struct {
	Prompt       string
	Choices      []string
	CorrectIndex int
}

// Outcome is the verdict for one presentation.
type Outcome struct {
	Position int
	Correct  bool
}

// presentation is the single-use verdict token for one Present call.
type presentation struct {
	q         Question
	onVerdict func(Outcome)
	consumed  bool
}

// Gate owns the question surface. It is driven from the playthrough loop and
// is not safe for concurrent use.
type Gate struct {
	surface Surface
	logger  *slog.Logger
	current *presentation
}

func NewGate(surface Surface, logger *slog.Logger) (*Gate, error) {
	if surface == nil {
		return nil, errors.New("question surface is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{surface: surface, logger: logger}, nil
}

// Present shows q and arms onVerdict. Any question already on screen is
// replaced and its registration dropped.
func (g *Gate) Present(q Question, onVerdict func(Outcome)) {
	if g.current != nil && !g.current.consumed {
		g.logger.Debug("replacing unanswered question", "prompt", g.current.q.Prompt)
	}
	g.current = &presentation{q: q, onVerdict: onVerdict}
	g.surface.Show(q.Prompt, q.Choices)
}

// Activate handles a choice selection. It reports whether a verdict was
// delivered; duplicates and out-of-range positions are dropped.
func (g *Gate) Activate(position int) bool {
	p := g.current
	if p == nil {
		g.logger.Debug("choice activated with no question displayed", "position", position)
		return false
	}
	if p.consumed {
		g.logger.Debug("duplicate choice activation ignored", "position", position)
		return false
	}
	if position < 0 || position >= len(p.q.Choices) {
		g.logger.Warn("choice position out of range", "position", position, "choices", len(p.q.Choices))
		return false
	}

	p.consumed = true
	onVerdict := p.onVerdict
	p.onVerdict = nil

	outcome := Outcome{Position: position, Correct: position == p.q.CorrectIndex}
	g.surface.MarkChoice(position, outcome.Correct)
	if onVerdict != nil {
		onVerdict(outcome)
	}
	return true
}

// Dismiss hides the question and drops any registration.
func (g *Gate) Dismiss() {
	if g.current == nil {
		return
	}
	g.current = nil
	g.surface.Hide()
}

// Active reports whether a question is on screen, answered or not.
func (g *Gate) Active() bool {
	return g.current != nil
}

// Awaiting reports whether a question is on screen and still unanswered.
func (g *Gate) Awaiting() bool {
	return g.current != nil && !g.current.consumed
}
