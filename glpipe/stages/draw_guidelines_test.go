package stages

import "testing"

func TestIntegrateGuideline_NoBounceWithinRange(t *testing.T) {
	pos, vel := integrateGuideline(0, 0.5, 1.0)
	if pos != 0.5 || vel != 0.5 {
		t.Fatalf("got pos=%v vel=%v, want pos=0.5 vel=0.5", pos, vel)
	}
}

func TestIntegrateGuideline_BouncesAtUpperEdge(t *testing.T) {
	// Starting near +1 with a velocity that would overshoot past +1.
	pos, vel := integrateGuideline(0.9, 0.5, 1.0)
	if vel >= 0 {
		t.Fatalf("expected velocity to flip negative after bounce, got %v", vel)
	}
	if pos > 1 || pos < -1 {
		t.Fatalf("bounced position %v out of [-1,1]", pos)
	}
}

func TestIntegrateGuideline_BouncesAtLowerEdge(t *testing.T) {
	pos, vel := integrateGuideline(-0.9, -0.5, 1.0)
	if vel <= 0 {
		t.Fatalf("expected velocity to flip positive after bounce, got %v", vel)
	}
	if pos > 1 || pos < -1 {
		t.Fatalf("bounced position %v out of [-1,1]", pos)
	}
}

func TestIntegrateGuideline_ZeroDtIsNoOp(t *testing.T) {
	pos, vel := integrateGuideline(0.3, 0.7, 0)
	if pos != 0.3 || vel != 0.7 {
		t.Fatalf("got pos=%v vel=%v, want unchanged 0.3/0.7", pos, vel)
	}
}
