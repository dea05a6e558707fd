package gpio

import (
	"testing"
)

func TestMockDriver_TracksLevels(t *testing.T) {
	drv := NewMockDriver()

	if err := drv.SetupPin(24, Output); err != nil {
		t.Fatalf("SetupPin: %v", err)
	}
	if err := drv.WritePin(24, High); err != nil {
		t.Fatalf("WritePin: %v", err)
	}

	got, err := drv.ReadPin(24)
	if err != nil {
		t.Fatalf("ReadPin: %v", err)
	}
	if got != High {
		t.Errorf("pin 24 = %v, want HIGH", got)
	}

	if got, _ := drv.ReadPin(25); got != Low {
		t.Errorf("untouched pin 25 = %v, want LOW", got)
	}
}

func TestMockDriver_RejectsWriteToInput(t *testing.T) {
	drv := NewMockDriver()
	_ = drv.SetupPin(17, Input)

	if err := drv.WritePin(17, High); err == nil {
		t.Error("expected an error writing to an input pin")
	}
}

func TestNewDriver_Mock(t *testing.T) {
	drv, err := NewDriver(true)
	if err != nil {
		t.Fatalf("NewDriver(true): %v", err)
	}
	if _, ok := drv.(*MockDriver); !ok {
		t.Errorf("NewDriver(true) returned %T, want *MockDriver", drv)
	}
	if err := drv.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestLevelAndModeStrings(t *testing.T) {
	cases := []struct {
		got, want string
	}{
		{High.String(), "HIGH"},
		{Low.String(), "LOW"},
		{Input.String(), "input"},
		{Output.String(), "output"},
		{PinMode(7).String(), "mode(7)"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("got %q, want %q", tc.got, tc.want)
		}
	}
}
