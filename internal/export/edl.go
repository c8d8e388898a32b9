// Package export renders a playlist's straight-through cut, every clip in
// order with all questions answered correctly, as a CMX3600 edit decision
// list for review in an editor.
package export

import (
	"fmt"
	"math"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/heimdex/reelquiz/internal/playlist"
)

// DefaultFrameRate is used when the caller passes a non-positive rate.
const DefaultFrameRate = 30.0

// Event is one record on the EDL timeline.
type Event struct {
	ClipName  string
	MediaPath string
	In        time.Duration
	Out       time.Duration
	Comment   string
}

// Events lists the main clip of every scene unit. resolve maps clip paths to
// media paths; a nil resolve keeps the authored paths.
func Events(p *playlist.Playlist, resolve func(string) (string, error)) ([]Event, error) {
	events := make([]Event, 0, p.Len())
	for i, u := range p.Units {
		media := u.Clip.Path
		if resolve != nil {
			resolved, err := resolve(u.Clip.Path)
			if err != nil {
				return nil, fmt.Errorf("unit %d: %w", i, err)
			}
			media = resolved
		}
		events = append(events, Event{
			ClipName:  SanitizeName(strings.TrimSuffix(path.Base(u.Clip.Path), path.Ext(u.Clip.Path)), 32),
			MediaPath: media,
			In:        0,
			Out:       u.Clip.Duration,
			Comment:   fmt.Sprintf("QUESTION AT %s: %s", timecode(u.TriggerTime, fps(DefaultFrameRate)), SanitizeName(u.Prompt, 60)),
		})
	}
	return events, nil
}

func GenerateEDL(events []Event, title string, frameRate float64) string {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	rate := fps(frameRate)

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, 70))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	var record time.Duration
	for i, ev := range events {
		length := ev.Out - ev.In
		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V",
				timecode(ev.In, rate), timecode(ev.Out, rate),
				timecode(record, rate), timecode(record+length, rate)),
			fmt.Sprintf("* FROM CLIP NAME:  %s", ev.ClipName),
			fmt.Sprintf("* MEDIA PATH:  %s", ev.MediaPath),
		)
		if ev.Comment != "" {
			lines = append(lines, "* "+ev.Comment)
		}
		record += length
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// Filename is a download name for the playlist's EDL.
func Filename(name string) string {
	base := SanitizeName(name, 64)
	if base == "" {
		base = "playlist"
	}
	return strings.ReplaceAll(base, " ", "_") + ".edl"
}

func fps(frameRate float64) int {
	n := int(math.Round(frameRate))
	if n <= 0 {
		return int(DefaultFrameRate)
	}
	return n
}

func timecode(d time.Duration, fps int) string {
	totalFrames := int(math.Round(d.Seconds() * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}

// SanitizeName drops control characters, replaces anything outside a small
// safe set with '_' and caps the result at maxLen runes.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}
