package rummy

// Test helpers shared with the external rummy_test package.
var (
	FaceID             = faceID
	RiggedDeck         = riggedDeck
	AssertConservation = assertConservation
)
