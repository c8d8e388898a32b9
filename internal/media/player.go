// Package media holds the media collaborator contract and the loop-driven
// player that acts as the authoritative clip clock for a playthrough.
package media

import (
	"time"

	"github.com/heimdex/reelquiz/internal/playlist"
)

// Player is the playback handle the sequencer drives.
type Player interface {
	Load(clip playlist.Clip)
	Play()
	Pause()
	Stop()
	Seek(t time.Duration)
	SetRate(factor float64)
	CurrentTime() time.Duration
	IsPlaying() bool
	// OnReachedEnd subscribes fn to end-of-media; the returned func releases
	// the subscription.
	OnReachedEnd(fn func()) (unsubscribe func())
}

// VirtualPlayer advances a clip clock by dt*rate on every Advance call and
// emits reached-end once when the clock hits the clip duration. Remote
// renderers follow its state; it decodes nothing itself.
type VirtualPlayer struct {
	clip    playlist.Clip
	loaded  bool
	time    time.Duration
	rate    float64
	playing bool

	nextSub     int
	subscribers map[int]func()
}

func NewVirtualPlayer() *VirtualPlayer {
	return &VirtualPlayer{rate: 1, subscribers: make(map[int]func())}
}

func (p *VirtualPlayer) Load(clip playlist.Clip) {
	p.clip = clip
	p.loaded = true
	p.time = 0
	p.rate = 1
	p.playing = false
}

func (p *VirtualPlayer) Play() {
	if !p.loaded {
		return
	}
	p.playing = true
}

func (p *VirtualPlayer) Pause() {
	p.playing = false
}

func (p *VirtualPlayer) Stop() {
	p.playing = false
	p.time = 0
}

func (p *VirtualPlayer) Seek(t time.Duration) {
	if t < 0 {
		t = 0
	}
	if p.clip.Duration > 0 && t > p.clip.Duration {
		t = p.clip.Duration
	}
	p.time = t
}

func (p *VirtualPlayer) SetRate(factor float64) {
	if factor < 0 {
		factor = 0
	}
	p.rate = factor
}

func (p *VirtualPlayer) CurrentTime() time.Duration {
	return p.time
}

func (p *VirtualPlayer) IsPlaying() bool {
	return p.playing
}

func (p *VirtualPlayer) Rate() float64 {
	return p.rate
}

// Clip returns the loaded clip and whether one is loaded.
func (p *VirtualPlayer) Clip() (playlist.Clip, bool) {
	return p.clip, p.loaded
}

func (p *VirtualPlayer) OnReachedEnd(fn func()) func() {
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = fn
	return func() { delete(p.subscribers, id) }
}

// Advance moves the clip clock forward by dt of wall time.
func (p *VirtualPlayer) Advance(dt time.Duration) {
	if !p.playing || p.clip.Duration <= 0 {
		return
	}
	p.time += time.Duration(float64(dt) * p.rate)
	if p.time < p.clip.Duration {
		return
	}
	p.time = p.clip.Duration
	p.playing = false
	for id := 0; id < p.nextSub; id++ {
		if fn, ok := p.subscribers[id]; ok {
			fn()
		}
	}
}
