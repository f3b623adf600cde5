package game

// Charge computes a side's remaining clock after a completed move: the
// whole seconds spent thinking are deducted, then the category increment
// is added. Never returns a negative value. Pure; both sides use it.
func Charge(remainingSec, elapsedSec, incrementSec int64) int64 {
	left := remainingSec - elapsedSec + incrementSec
	if left < 0 {
		return 0
	}
	return left
}
