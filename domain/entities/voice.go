package entities

import "strings"

// VoiceGender declares the preferred gender for an agent voice
type VoiceGender string

const (
	VoiceGenderFemale VoiceGender = "female"
	VoiceGenderMale   VoiceGender = "male"
)

// VoiceProfile describes how an agent persona should sound. Profiles are
// static and chosen once when a session starts.
type VoiceProfile struct {
	Name       string      `json:"name" bson:"name"`
	Gender     VoiceGender `json:"gender" bson:"gender"`
	Pitch      float64     `json:"pitch" bson:"pitch"`
	Rate       float64     `json:"rate" bson:"rate"`
	VoiceIndex int         `json:"voice_index" bson:"voice_index"`
}

// Voice is one synthesis voice exposed by a speech engine
type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
	Locale string `json:"locale"`
}

// AgentProfiles is the static catalog of agent personas
var AgentProfiles = []VoiceProfile{
	{Name: "Ava", Gender: VoiceGenderFemale, Pitch: 1.1, Rate: 1.0, VoiceIndex: 0},
	{Name: "Noah", Gender: VoiceGenderMale, Pitch: 0.9, Rate: 1.0, VoiceIndex: 1},
	{Name: "Mia", Gender: VoiceGenderFemale, Pitch: 1.0, Rate: 1.05, VoiceIndex: 2},
}

// DefaultAgentProfile returns the persona used when no explicit choice is
// made for a session
func DefaultAgentProfile() VoiceProfile {
	return AgentProfiles[0]
}

// SelectVoice picks the best matching synthesis voice for a profile from
// the voices the engine exposes. A voice is preferred if its declared
// gender matches the profile and its locale is English. Voice naming is
// engine specific, so when no gender match exists the selection falls
// back to indexing modulo the catalog size.
func (p VoiceProfile) SelectVoice(voices []Voice) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	for _, v := range voices {
		if !strings.EqualFold(v.Gender, string(p.Gender)) {
			continue
		}
		if isEnglishLocale(v.Locale) {
			return v, true
		}
	}

	return voices[p.VoiceIndex%len(voices)], true
}

func isEnglishLocale(locale string) bool {
	return strings.HasPrefix(strings.ToLower(locale), "en")
}
