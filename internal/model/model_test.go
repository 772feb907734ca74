package model

import "testing"

func TestConfidenceRangeCoversEveryResolutionLevel(t *testing.T) {
	levels := []ResolutionLevel{
		ResolutionLocalExact, ResolutionImportExact, ResolutionCHAResolved, ResolutionRTAResolved,
		ResolutionRuntimeConfirmed, ResolutionExternalDetected, ResolutionVirtualCallback, ResolutionDBBridge,
	}
	for _, level := range levels {
		low, high := ConfidenceRange(level)
		if low <= 0 || high <= 0 {
			t.Errorf("%s: expected a positive confidence range, got [%v, %v]", level, low, high)
		}
		if low > high {
			t.Errorf("%s: low bound %v exceeds high bound %v", level, low, high)
		}
	}
}

func TestConfidenceRangeUnknownLevelIsZero(t *testing.T) {
	low, high := ConfidenceRange(ResolutionLevel("not_a_real_level"))
	if low != 0 || high != 0 {
		t.Fatalf("expected zero range for unknown level, got [%v, %v]", low, high)
	}
}
