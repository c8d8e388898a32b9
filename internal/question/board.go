package question

import "sync"

const (
	MarkNone      = ""
	MarkCorrect   = "correct"
	MarkIncorrect = "incorrect"
)

// DefaultSlots is the size of the answer element pool.
const DefaultSlots = 4

// Board is a Surface with a fixed pool of answer slots, rendered remotely
// from snapshots. Safe for concurrent use.
type Board struct {
	mu      sync.RWMutex
	visible bool
	prompt  string
	slots   []Slot
}

type Slot struct {
	Text    string `json:"text"`
	Visible bool   `json:"visible"`
	Mark    string `json:"mark,omitempty"`
}

type BoardView struct {
	Visible bool   `json:"visible"`
	Prompt  string `json:"prompt,omitempty"`
	Slots   []Slot `json:"slots"`
}

func NewBoard(slots int) *Board {
	if slots <= 0 {
		slots = DefaultSlots
	}
	return &Board{slots: make([]Slot, slots)}
}

func (b *Board) SlotCount() int {
	return len(b.slots)
}

// Show fills one slot per choice and hides the rest of the pool. Choices
// beyond the pool are not shown.
func (b *Board) Show(prompt string, choices []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.visible = true
	b.prompt = prompt
	for i := range b.slots {
		if i < len(choices) {
			b.slots[i] = Slot{Text: choices[i], Visible: true}
		} else {
			b.slots[i] = Slot{}
		}
	}
}

func (b *Board) Hide() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.visible = false
	b.prompt = ""
	for i := range b.slots {
		b.slots[i] = Slot{}
	}
}

func (b *Board) MarkChoice(position int, correct bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if position < 0 || position >= len(b.slots) || !b.slots[position].Visible {
		return
	}
	if correct {
		b.slots[position].Mark = MarkCorrect
	} else {
		b.slots[position].Mark = MarkIncorrect
	}
}

func (b *Board) Snapshot() BoardView {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return BoardView{
		Visible: b.visible,
		Prompt:  b.prompt,
		Slots:   append([]Slot(nil), b.slots...),
	}
}

// VisibleChoices returns how many slots are currently shown.
func (v BoardView) VisibleChoices() int {
	n := 0
	for _, s := range v.Slots {
		if s.Visible {
			n++
		}
	}
	return n
}

// Answered reports whether any slot carries a verdict mark.
func (v BoardView) Answered() bool {
	for _, s := range v.Slots {
		if s.Mark != MarkNone {
			return true
		}
	}
	return false
}
