package preference

import (
	"sync"
	"testing"

	"github.com/ytget/rip-bot/internal/model"
)

func TestStore_DefaultsToFLAC(t *testing.T) {
	s := NewStore()
	if got := s.Format(1); got != model.FormatFLAC {
		t.Errorf("expected flac for unknown user, got %s", got)
	}
	if len(s.formats) != 0 {
		t.Errorf("reading must not create entries, got %d", len(s.formats))
	}
}

func TestStore_SetFormat(t *testing.T) {
	s := NewStore()

	if !s.SetFormat(1, model.FormatMP3) {
		t.Fatal("expected mp3 to be accepted")
	}
	if got := s.Format(1); got != model.FormatMP3 {
		t.Errorf("expected mp3, got %s", got)
	}

	s.SetFormat(1, model.FormatFLAC)
	if got := s.Format(1); got != model.FormatFLAC {
		t.Errorf("expected flac after switching back, got %s", got)
	}
}

func TestStore_RejectsUnknownFormat(t *testing.T) {
	s := NewStore()
	s.SetFormat(1, model.FormatMP3)

	if s.SetFormat(1, model.Format("alac")) {
		t.Error("expected alac to be rejected")
	}
	if got := s.Format(1); got != model.FormatMP3 {
		t.Errorf("expected previous format to stay, got %s", got)
	}
}

func TestStore_UserIsolation(t *testing.T) {
	s := NewStore()
	const userA, userB = int64(100), int64(200)

	s.SetFormat(userA, model.FormatMP3)

	if got := s.Format(userB); got != model.FormatFLAC {
		t.Errorf("setting user A changed user B: got %s", got)
	}
	if got := s.Format(userA); got != model.FormatMP3 {
		t.Errorf("expected user A mp3, got %s", got)
	}
}

func TestStore_InstancesAreIndependent(t *testing.T) {
	a, b := NewStore(), NewStore()
	a.SetFormat(1, model.FormatMP3)
	if got := b.Format(1); got != model.FormatFLAC {
		t.Errorf("stores share state: got %s", got)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			s.SetFormat(id, model.FormatMP3)
		}(i)
		go func(id int64) {
			defer wg.Done()
			_ = s.Format(id)
		}(i)
	}
	wg.Wait()

	for id := int64(0); id < 50; id++ {
		if got := s.Format(id); got != model.FormatMP3 {
			t.Errorf("user %d: expected mp3, got %s", id, got)
		}
	}
}
