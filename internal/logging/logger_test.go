package logging

import "testing"

func TestNewBuildsBothModes(t *testing.T) {
	t.Parallel()

	for _, development := range []bool{true, false} {
		logger, err := New(development)
		if err != nil {
			t.Fatalf("development=%v: %v", development, err)
		}
		if logger == nil {
			t.Fatalf("development=%v: nil logger", development)
		}
	}
}
