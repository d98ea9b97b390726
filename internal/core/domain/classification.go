package domain

import (
	"fmt"
	"slices"
	"strings"
)

const (
	StackBackend           = "backend"
	StackFrontend          = "frontend"
	StackDesign            = "design"
	StackProductManagement = "product management"
	StackCloudEngineering  = "cloud engineering"
	StackDataScience       = "data science"
	StackMobileDevelopment = "mobile development"
	StackDigitalMarketing  = "digital marketing"
)

const (
	ProficiencyBeginner     = "beginner"
	ProficiencyIntermediate = "intermediate"
	ProficiencyAdvanced     = "advanced"
)

// StackTracks lists the stacks whose track is constrained and the tracks
// each one accepts. Stacks absent from this table accept any track.
var StackTracks = map[string][]string{
	StackBackend:  {"nodejs", "python", "php", "golang"},
	StackFrontend: {"vuejs", "reactjs", "vanillajs"},
	StackDesign:   {"product design", "ui/ux design"},
}

// Stacks is every stack a user or content item can be classified under.
var Stacks = []string{
	StackBackend,
	StackFrontend,
	StackDesign,
	StackProductManagement,
	StackCloudEngineering,
	StackDataScience,
	StackMobileDevelopment,
	StackDigitalMarketing,
}

var Proficiencies = []string{
	ProficiencyBeginner,
	ProficiencyIntermediate,
	ProficiencyAdvanced,
}

// Normalize lower-cases and trims a classification value.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateStackTrack checks that track belongs to stack.
//
// An empty pair is accepted; callers that require a classification must
// check for presence themselves.
func ValidateStackTrack(stack, track string) error {
	stack, track = Normalize(stack), Normalize(track)

	if stack == "" {
		if track != "" {
			return NewValidationError("stack field is required")
		}
		return nil
	}

	tracks, gated := StackTracks[stack]
	if !gated {
		return nil
	}
	if track == "" {
		return NewValidationError("track field is required")
	}
	if !slices.Contains(tracks, track) {
		return NewValidationError(fmt.Sprintf("track selected is not a %s track", stack))
	}
	return nil
}

// ValidateClassification runs ValidateStackTrack and additionally rejects
// stacks and proficiencies outside the supported sets.
func ValidateClassification(stack, track, proficiency string) error {
	if s := Normalize(stack); s != "" && !slices.Contains(Stacks, s) {
		return NewValidationError(fmt.Sprintf("stack must be one of: %s", strings.Join(Stacks, ", ")))
	}
	if p := Normalize(proficiency); p != "" && !slices.Contains(Proficiencies, p) {
		return NewValidationError(fmt.Sprintf("proficiency must be one of: %s", strings.Join(Proficiencies, ", ")))
	}
	return ValidateStackTrack(stack, track)
}

// Audience is the classification content is targeted at.
type Audience struct {
	Stack       string
	Track       string
	Proficiency string
	Stage       int
}
