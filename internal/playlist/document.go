package playlist

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"
)

// Document is the JSON authoring format for playlists, used both for files in
// the playlists directory and for the HTTP import endpoint.
type Document struct {
	Name  string         `json:"name"`
	Units []UnitDocument `json:"units"`
}

type UnitDocument struct {
	Clip            ClipDocument  `json:"clip"`
	TriggerTimeS    float64       `json:"trigger_time_s"`
	SlowdownFactor  float64       `json:"slowdown_factor,omitempty"`
	Question        string        `json:"question"`
	Choices         []string      `json:"choices"`
	CorrectIndex    int           `json:"correct_index"`
	WrongAnswerClip *ClipDocument `json:"wrong_answer_clip,omitempty"`
}

type ClipDocument struct {
	Path      string  `json:"path"`
	DurationS float64 `json:"duration_s,omitempty"`
}

// Decode reads a Document from r and converts it. The result is not validated.
func Decode(r io.Reader) (*Playlist, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode playlist: %w", err)
	}
	return doc.Playlist(), nil
}

func (d Document) Playlist() *Playlist {
	p := &Playlist{Name: d.Name, Units: make([]SceneUnit, len(d.Units))}
	for i, u := range d.Units {
		slowdown := u.SlowdownFactor
		if slowdown == 0 {
			slowdown = DefaultSlowdownFactor
		}
		unit := SceneUnit{
			Clip:           u.Clip.clip(),
			TriggerTime:    Seconds(u.TriggerTimeS),
			SlowdownFactor: slowdown,
			Prompt:         u.Question,
			Choices:        append([]string(nil), u.Choices...),
			CorrectIndex:   u.CorrectIndex,
		}
		if u.WrongAnswerClip != nil {
			c := u.WrongAnswerClip.clip()
			unit.WrongAnswerClip = &c
		}
		p.Units[i] = unit
	}
	return p
}

// ToDocument is the inverse of Document.Playlist.
func ToDocument(p *Playlist) Document {
	doc := Document{Name: p.Name, Units: make([]UnitDocument, len(p.Units))}
	for i, u := range p.Units {
		ud := UnitDocument{
			Clip:           clipDocument(u.Clip),
			TriggerTimeS:   u.TriggerTime.Seconds(),
			SlowdownFactor: u.SlowdownFactor,
			Question:       u.Prompt,
			Choices:        u.Choices,
			CorrectIndex:   u.CorrectIndex,
		}
		if u.WrongAnswerClip != nil {
			c := clipDocument(*u.WrongAnswerClip)
			ud.WrongAnswerClip = &c
		}
		doc.Units[i] = ud
	}
	return doc
}

func (c ClipDocument) clip() Clip {
	return Clip{Path: c.Path, Duration: Seconds(c.DurationS)}
}

func clipDocument(c Clip) ClipDocument {
	return ClipDocument{Path: c.Path, DurationS: c.Duration.Seconds()}
}

// Seconds converts fractional seconds to a Duration, rounding to the
// nearest millisecond.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}
