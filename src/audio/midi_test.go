package audio

import "testing"

func TestNoteOnFrequency(t *testing.T) {
	freq, ok := NoteOnFrequency([]byte{0x90, 69, 100})
	expectEqual(t, ok, true)
	expectNearlyEqual(t, freq, 440)

	freq, ok = NoteOnFrequency([]byte{0x93, 81, 1})
	expectEqual(t, ok, true)
	expectNearlyEqual(t, freq, 880)

	for _, msg := range [][]byte{
		{0x90, 69, 0},
		{0x80, 69, 100},
		{0x90, 69},
		nil,
	} {
		if _, ok := NoteOnFrequency(msg); ok {
			t.Errorf("expected % x to be rejected", msg)
		}
	}
}
