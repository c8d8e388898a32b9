// Package playlist defines the authored data of an interactive quiz reel:
// an ordered list of clips, each pausing at a trigger time to ask a question.
package playlist

import (
	"errors"
	"fmt"
	"time"
)

// DefaultSlowdownFactor is the playback rate used before a question when the
// author does not set one.
const DefaultSlowdownFactor = 0.2

var ErrEmptyPlaylist = errors.New("playlist has no scene units")

// Clip is a playable media unit. Path is relative to the clips directory.
type Clip struct {
	Path     string
	Duration time.Duration
}

// SceneUnit is one clip plus the question it pauses for.
type SceneUnit struct {
	Clip           Clip
	TriggerTime    time.Duration
	SlowdownFactor float64
	Prompt         string
	Choices        []string
	CorrectIndex   int

	// WrongAnswerClip is played before restarting Clip when the viewer
	// answers incorrectly. Optional.
	WrongAnswerClip *Clip
}

type Playlist struct {
	ID         string
	Name       string
	SourcePath string
	Units      []SceneUnit
	CreatedAt  time.Time
}

func (p *Playlist) Len() int {
	return len(p.Units)
}

// Validate reports every configuration error in the playlist. slots is the
// number of answer elements the question surface can show; zero disables
// the check.
func (p *Playlist) Validate(slots int) error {
	if len(p.Units) == 0 {
		return ErrEmptyPlaylist
	}

	var errs []error
	for i, u := range p.Units {
		if err := u.validate(slots); err != nil {
			errs = append(errs, fmt.Errorf("unit %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Warnings lists non-fatal authoring issues: fewer choices than slots, and
// trigger times past the end of the clip.
func (p *Playlist) Warnings(slots int) []string {
	var out []string
	for i, u := range p.Units {
		if slots > 0 && len(u.Choices) < slots {
			out = append(out, fmt.Sprintf("unit %d: %d choices for %d answer slots, unused slots are hidden", i, len(u.Choices), slots))
		}
		if u.Clip.Duration > 0 && u.TriggerTime > u.Clip.Duration {
			out = append(out, fmt.Sprintf("unit %d: trigger time %s is past clip end %s", i, u.TriggerTime, u.Clip.Duration))
		}
	}
	return out
}

func (u SceneUnit) validate(slots int) error {
	var errs []error
	if err := u.Clip.validate(); err != nil {
		errs = append(errs, fmt.Errorf("clip: %w", err))
	}
	if u.WrongAnswerClip != nil {
		if err := u.WrongAnswerClip.validate(); err != nil {
			errs = append(errs, fmt.Errorf("wrong answer clip: %w", err))
		}
	}
	if u.TriggerTime < 0 {
		errs = append(errs, fmt.Errorf("trigger time must be >= 0, got %s", u.TriggerTime))
	}
	if u.SlowdownFactor <= 0 || u.SlowdownFactor > 1 {
		errs = append(errs, fmt.Errorf("slowdown factor must be in (0,1], got %g", u.SlowdownFactor))
	}
	if len(u.Choices) == 0 {
		errs = append(errs, errors.New("choices must not be empty"))
	} else if u.CorrectIndex < 0 || u.CorrectIndex >= len(u.Choices) {
		errs = append(errs, fmt.Errorf("correct index %d out of range [0,%d)", u.CorrectIndex, len(u.Choices)))
	}
	if slots > 0 && len(u.Choices) > slots {
		errs = append(errs, fmt.Errorf("%d choices exceed %d answer slots", len(u.Choices), slots))
	}
	return errors.Join(errs...)
}

func (c Clip) validate() error {
	if c.Path == "" {
		return errors.New("path is required")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration of %s is unknown", c.Path)
	}
	return nil
}
