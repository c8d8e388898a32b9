package sequencer

import (
	"fmt"
	"strings"
)

type State int

const (
	StateIdle State = iota
	StatePlaying
	StateSlowedDown
	StateQuestionPending
	StateRestarting
	StateAdvancing
	StateComplete
)

var stateNames = map[State]string{
	StateIdle:            "idle",
	StatePlaying:         "playing",
	StateSlowedDown:      "slowed_down",
	StateQuestionPending: "question_pending",
	StateRestarting:      "restarting",
	StateAdvancing:       "advancing",
	StateComplete:        "complete",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Policy decides what a wrong answer does.
type Policy string

const (
	// PolicyRetry dismisses the feedback and asks the same question again. The
	// clip stays paused at its slowed rate until a correct answer resumes it.
	PolicyRetry Policy = "retry"
	// PolicyRestart fades out and replays the clip from the start, after its
	// wrong answer clip when one is authored.
	PolicyRestart Policy = "restart"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyRetry, PolicyRestart:
		return p, nil
	default:
		return "", fmt.Errorf("unknown wrong answer policy %q (want retry or restart)", s)
	}
}
