package util

import "testing"

func TestPtr_Copies(t *testing.T) {
	v := 3
	p := Ptr(v)
	v = 5
	if *p != 3 {
		t.Errorf("*Ptr(3) = %d after the source changed", *p)
	}
	if Ptr(-1) == Ptr(-1) {
		t.Error("each call should return a new pointer")
	}
}
