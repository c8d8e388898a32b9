package media

import (
	"testing"
	"time"

	"github.com/heimdex/reelquiz/internal/playlist"
)

func TestVirtualPlayer_AdvanceWithRate(t *testing.T) {
	p := NewVirtualPlayer()
	p.Load(playlist.Clip{Path: "a.mp4", Duration: 10 * time.Second})
	p.Play()

	p.Advance(2 * time.Second)
	if p.CurrentTime() != 2*time.Second {
		t.Fatalf("CurrentTime() = %s, want 2s", p.CurrentTime())
	}

	p.SetRate(0.5)
	p.Advance(2 * time.Second)
	if p.CurrentTime() != 3*time.Second {
		t.Fatalf("CurrentTime() = %s, want 3s at half rate", p.CurrentTime())
	}

	p.Pause()
	p.Advance(5 * time.Second)
	if p.CurrentTime() != 3*time.Second {
		t.Fatalf("paused player advanced to %s", p.CurrentTime())
	}
}

func TestVirtualPlayer_ReachedEndOnce(t *testing.T) {
	p := NewVirtualPlayer()
	p.Load(playlist.Clip{Path: "a.mp4", Duration: 3 * time.Second})

	ends := 0
	p.OnReachedEnd(func() { ends++ })

	p.Play()
	p.Advance(5 * time.Second)
	p.Advance(5 * time.Second)

	if ends != 1 {
		t.Fatalf("reached end fired %d times, want 1", ends)
	}
	if p.IsPlaying() {
		t.Error("IsPlaying() = true after end")
	}
	if p.CurrentTime() != 3*time.Second {
		t.Errorf("CurrentTime() = %s, want clamp to 3s", p.CurrentTime())
	}
}

func TestVirtualPlayer_Unsubscribe(t *testing.T) {
	p := NewVirtualPlayer()
	p.Load(playlist.Clip{Path: "a.mp4", Duration: time.Second})

	ends := 0
	unsubscribe := p.OnReachedEnd(func() { ends++ })
	unsubscribe()

	p.Play()
	p.Advance(2 * time.Second)
	if ends != 0 {
		t.Fatalf("unsubscribed callback fired %d times", ends)
	}
}

func TestVirtualPlayer_LoadResets(t *testing.T) {
	p := NewVirtualPlayer()
	p.Load(playlist.Clip{Path: "a.mp4", Duration: 10 * time.Second})
	p.SetRate(0.2)
	p.Play()
	p.Advance(time.Second)

	p.Load(playlist.Clip{Path: "b.mp4", Duration: 4 * time.Second})
	if p.CurrentTime() != 0 || p.IsPlaying() || p.Rate() != 1 {
		t.Fatalf("Load() did not reset: time=%s playing=%v rate=%g", p.CurrentTime(), p.IsPlaying(), p.Rate())
	}
	clip, ok := p.Clip()
	if !ok || clip.Path != "b.mp4" {
		t.Errorf("Clip() = %+v, %v", clip, ok)
	}
}

func TestVirtualPlayer_PlayWithoutClip(t *testing.T) {
	p := NewVirtualPlayer()
	p.Play()
	if p.IsPlaying() {
		t.Fatal("IsPlaying() = true with no clip loaded")
	}
}

func TestVirtualPlayer_SeekClamps(t *testing.T) {
	p := NewVirtualPlayer()
	p.Load(playlist.Clip{Path: "a.mp4", Duration: 5 * time.Second})

	p.Seek(-time.Second)
	if p.CurrentTime() != 0 {
		t.Errorf("Seek(-1s) = %s, want 0", p.CurrentTime())
	}
	p.Seek(9 * time.Second)
	if p.CurrentTime() != 5*time.Second {
		t.Errorf("Seek(9s) = %s, want 5s", p.CurrentTime())
	}
}
