package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestTagged(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf).Tagged("session")
	log.Info().Str(DirectionField, "→").Msg("join")

	out := buf.String()
	for _, want := range []string{`"m":"session"`, `"d":"→"`, `"message":"join"`} {
		if !strings.Contains(out, want) {
			t.Errorf("no %v in %v", want, out)
		}
	}
}

func TestPionLevel(t *testing.T) {
	var buf bytes.Buffer
	pl := NewPionLogger(NewWriter(&buf), int(WarnLevel)).NewLogger("ice")
	pl.Info("hidden")
	pl.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("wrong level filtering: %v", buf.String())
	}
}
