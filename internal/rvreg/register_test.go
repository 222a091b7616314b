package rvreg

import "testing"

func TestArgRegister(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		want    Register
		wantOk  bool
	}{
		{name: "first", index: 0, want: A0, wantOk: true},
		{name: "last", index: 7, want: A7, wantOk: true},
		{name: "negative", index: -1, want: Zero, wantOk: false},
		{name: "out_of_range", index: 8, want: Zero, wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ArgRegister(tt.index)
			if ok != tt.wantOk || got != tt.want {
				t.Fatalf("ArgRegister(%d) = (%v, %v), want (%v, %v)", tt.index, got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestIsCalleeSaved(t *testing.T) {
	if !IsCalleeSaved(S1) {
		t.Fatalf("s1 should be callee-saved")
	}
	if IsCalleeSaved(T0) {
		t.Fatalf("t0 should not be callee-saved")
	}
}

func TestAllocatable(t *testing.T) {
	if Allocatable(Zero) {
		t.Fatalf("zero register must not be allocatable")
	}
	if Allocatable(FP) {
		t.Fatalf("frame pointer must not be allocatable")
	}
	if !Allocatable(T0) {
		t.Fatalf("t0 must be allocatable")
	}
}

func TestRegisterString(t *testing.T) {
	if A0.String() != "a0" {
		t.Fatalf("A0.String() = %q, want a0", A0.String())
	}
	if Register(99).String() == "" {
		t.Fatalf("invalid register must still render something")
	}
}
