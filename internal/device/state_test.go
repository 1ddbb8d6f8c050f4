package device

import (
	"testing"

	"github.com/smazurov/pinnode/internal/joystick"
)

func TestNewStateDefaults(t *testing.T) {
	s := NewState()
	if s.Indicator {
		t.Error("Indicator should start off")
	}
	if s.Center != (joystick.Center{X: 2048, Y: 2048}) {
		t.Errorf("Center = %+v, want {2048 2048}", s.Center)
	}
}

func TestNewStateIndependent(t *testing.T) {
	a, b := NewState(), NewState()
	a.Indicator = true
	a.Center.X = 100
	if b.Indicator || b.Center.X != 2048 {
		t.Errorf("states share storage: %+v", b)
	}
}
