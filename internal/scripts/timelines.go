// Package scripts holds the hand-authored demo timelines. Timelines are
// immutable data; callers receive fresh copies and the same engine in
// internal/agent plays every role.
package scripts

import (
	"demo-studio/internal/dialogue"
	"demo-studio/internal/domain"
)

// Cast pairs a participant role with its timeline and voice.
type Cast struct {
	Role        domain.Role
	DisplayName string
	Voice       string
	// EmotionVoices optionally maps emotion tags to alternate voices.
	EmotionVoices map[string]string
	Timeline      domain.Timeline
}

// Walkthrough is the product-walkthrough scenario: a presenter carries the
// narration while a customer interjects on cue.
func Walkthrough() []Cast {
	return []Cast{
		{
			Role:        domain.RolePresenter,
			DisplayName: "Sam (Product)",
			Voice:       "nova",
			Timeline: domain.Timeline{
				{OffsetSeconds: 0, Text: "Hi, thanks for joining. Let me walk you through the new workspace."},
				{OffsetSeconds: 9, Text: "On the left you can see every project your team has shared with you."},
				{OffsetSeconds: 19, Text: "Opening one gives you the live activity feed and the latest exports."},
				{OffsetSeconds: 31, Text: "Great question. Exports run nightly, and you can trigger one manually any time."},
				{OffsetSeconds: 42, Text: "That covers the tour. I'll send the recording and notes right after this call."},
			},
		},
		{
			Role:        domain.RoleCustomer,
			DisplayName: "Alex (Acme)",
			Voice:       "onyx",
			EmotionVoices: map[string]string{
				"curious": "shimmer",
			},
			Timeline: domain.Timeline{
				{OffsetSeconds: 5, Text: "Sounds good, go ahead."},
				{OffsetSeconds: 26, Text: "How often do those exports refresh?", Emotion: "curious"},
				{OffsetSeconds: 48, Text: "Perfect, thanks for the walkthrough."},
			},
		},
	}
}

// Conversation is the two-agent back-and-forth scenario with both timelines
// running concurrently.
func Conversation() []Cast {
	return []Cast{
		{
			Role:        domain.RolePresenter,
			DisplayName: "Jordan",
			Voice:       "alloy",
			Timeline: domain.Timeline{
				{OffsetSeconds: 0, Text: "Morning! Did the staging deploy go out last night?"},
				{OffsetSeconds: 12, Text: "Nice. Anything odd in the error budget after the rollout?"},
				{OffsetSeconds: 25, Text: "Let's keep an eye on it and flip the flag for everyone on Friday."},
			},
		},
		{
			Role:        domain.RoleCustomer,
			DisplayName: "Riley",
			Voice:       "echo",
			Timeline: domain.Timeline{
				{OffsetSeconds: 6, Text: "It did, around midnight. Rollout looked clean."},
				{OffsetSeconds: 18, Text: "A small latency bump on the search path, already back to baseline."},
				{OffsetSeconds: 32, Text: "Works for me. I'll prep the announcement."},
			},
		},
	}
}

// DialoguePersonas are the two speakers used by the generated-dialogue
// scenario.
func DialoguePersonas() (dialogue.Persona, dialogue.Persona) {
	return dialogue.Persona{
			Name:   "Morgan",
			Voice:  "nova",
			System: "You are Morgan, a friendly solutions engineer giving a short product demo. Keep replies to one or two sentences.",
		}, dialogue.Persona{
			Name:   "Casey",
			Voice:  "onyx",
			System: "You are Casey, a curious prospective customer evaluating the product. Ask practical questions. Keep replies to one or two sentences.",
		}
}

// TimelineFromTurns converts a generated dialogue into a zero-offset timeline.
// Offsets are all zero so the playback engine runs the turns back-to-back,
// paced only by per-utterance hold and pause.
func TimelineFromTurns(turns []dialogue.Turn) domain.Timeline {
	timeline := make(domain.Timeline, 0, len(turns))
	for _, turn := range turns {
		timeline = append(timeline, domain.Utterance{
			Text:  turn.Text,
			Voice: turn.Voice,
		})
	}
	return timeline
}

// DisplayCast is the shared on-screen agent that plays a generated dialogue.
func DisplayCast(timeline domain.Timeline) Cast {
	return Cast{
		Role:        domain.RoleDisplay,
		DisplayName: "Demo Dialogue",
		Voice:       "nova",
		Timeline:    timeline,
	}
}
