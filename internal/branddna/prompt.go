package branddna

import (
	"fmt"
)

const defaultMotionStyle = "Stable cinematic movement"

// InjectPrompt appends the profile's constraints to a generation prompt. Video
// prompts additionally carry the motion style.
func InjectPrompt(prompt string, p *Profile, isVideo bool) string {
	if p == nil {
		return prompt
	}
	name := p.Name
	if name == "" {
		name = "Brand DNA"
	}

	var block string
	if isVideo {
		motion := p.MotionStyle
		if motion == "" {
			motion = defaultMotionStyle
		}
		block = fmt.Sprintf(`
[BRAND DNA ACTIVE: %s]
Strictly adhere to these visual and motion constraints:
- Visual Style: %s
- Color Palette: %s
- Mood: %s
- Motion Style: %s
- Negative Constraints (AVOID): %s
`, name, p.VisualStyle, p.ColorPalette, p.Mood, motion, p.NegativeConstraint)
	} else {
		block = fmt.Sprintf(`
[BRAND DNA ACTIVE: %s]
- Visual Style: %s
- Color Palette: %s
- Mood: %s
- Negative Constraints: %s
`, name, p.VisualStyle, p.ColorPalette, p.Mood, p.NegativeConstraint)
	}
	return prompt + "\n\n" + block
}

// StyleReference returns the profile's style reference image URL, if any.
func StyleReference(p *Profile) string {
	if p == nil {
		return ""
	}
	return p.StyleReferenceURL
}
