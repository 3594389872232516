package playback

import "time"

// NopPlayer satisfies Player for headless runs and tests that only care
// about manager state.
type NopPlayer struct{}

func (NopPlayer) Play(string) error                { return nil }
func (NopPlayer) Pause(string) error               { return nil }
func (NopPlayer) Seek(string, time.Duration) error { return nil }
