package story

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// StoryPrompt asks for a 300-400 word romantic story written entirely in the
// answers' language.
func StoryPrompt(a Answers) string {
	a = a.Normalize()
	lang := a.Language.displayName()
	scriptNote := ""
	scriptRule := "Use standard English script"
	if a.Language.devanagari() {
		scriptNote = " Use Devanagari script (देवनागरी लिपी)."
		scriptRule = "Use Devanagari script (देवनागरी) for all text"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You MUST write a beautiful, romantic, and emotional love story COMPLETELY in %s language%s\n\n", lang, scriptNote)
	b.WriteString("CRITICAL REQUIREMENTS:\n")
	fmt.Fprintf(&b, "1. Write EVERY SINGLE WORD in %s - NO English words, NO mixing languages\n", lang)
	b.WriteString("2. Length: 3-4 paragraphs, approximately 300-400 words\n")
	fmt.Fprintf(&b, "3. %s\n", scriptRule)
	b.WriteString("4. Do NOT include any English text, translations, or explanations\n\n")
	b.WriteString("The story should be about a couple experiencing a magical moment together with these details:\n\n")
	fmt.Fprintf(&b, "- Location: %s\n", a.DreamDestination)
	fmt.Fprintf(&b, "- Time: %s\n", a.TimeOfDay)
	fmt.Fprintf(&b, "- Mood: %s\n", a.Mood)
	fmt.Fprintf(&b, "- Activity: %s\n", a.Activity)
	fmt.Fprintf(&b, "- Weather: %s\n", a.Weather)
	fmt.Fprintf(&b, "- Outfit Style: %s\n", a.OutfitStyle)
	fmt.Fprintf(&b, "- Special Effect: %s\n\n", a.SpecialEffect)
	b.WriteString("Story Requirements:\n")
	fmt.Fprintf(&b, "- Write 100%% in %s language ONLY\n", lang)
	b.WriteString("- Use first person or third person narrative style\n")
	b.WriteString("- Make it romantic, dreamy, and cinematic\n")
	b.WriteString("- Include vivid descriptions of the setting and atmosphere\n")
	b.WriteString("- Show the couple's emotions and connection\n")
	b.WriteString("- Make it feel like a scene from a romantic movie\n")
	fmt.Fprintf(&b, "- Use beautiful, poetic language appropriate for %s\n", lang)
	b.WriteString("- End on a hopeful, romantic note\n")
	b.WriteString("- The story should flow naturally and create a vivid, immersive experience\n\n")
	fmt.Fprintf(&b, "REMEMBER: Write ONLY in %s. Do NOT use English. Do NOT mix languages. Every single word must be in %s.", lang, lang)
	return b.String()
}

// CouplePortraitPrompt is the image prompt sent with the two reference photos.
func CouplePortraitPrompt(a Answers) string {
	a = a.Normalize()
	return fmt.Sprintf(`Create a romantic cinematic illustration of a couple.

The man must look like the boy photo provided.
The woman must look like the girl photo provided.

They are together at: %s
Mood: %s
Time: %s
Activity: %s
Weather: %s
Outfits: %s
Special effect: %s

Pixar / Disney style.
Full body.
Beautiful lighting.
High quality.`, a.DreamDestination, a.Mood, a.TimeOfDay, a.Activity, a.Weather, a.OutfitStyle, a.SpecialEffect)
}

// SceneAction names what the couple is doing in scene n of the travel story.
func SceneAction(n int) string {
	switch n {
	case 1:
		return "arriving together"
	case 2:
		return "walking hand in hand"
	case 3:
		return "enjoying view"
	case 4:
		return "romantic close moment"
	default:
		return "traveling together"
	}
}

// SceneCount is the number of scenes in a travel story.
const SceneCount = 4

// MaxScenePromptRunes bounds image prompts built from model output.
const MaxScenePromptRunes = 200

var requiredSceneTokens = []string{
	"cartoon style",
	"cute animated couple",
	"soft pastel colors",
	"romantic",
	"high quality",
	"consistent character appearance",
}

// ScenePromptRequest asks a text model for a short image prompt for one scene.
func ScenePromptRequest(place string, scene int) string {
	if scene == 0 {
		scene = 1
	}
	action := SceneAction(scene)
	return fmt.Sprintf(`Create a SHORT, VISUAL-FOCUSED AI image generation prompt (50-80 words max).

Setting: %[1]s
Scene Number: %[2]d

CRITICAL REQUIREMENTS (MUST INCLUDE ALL):
1. Style: cartoon style, cute animated couple
2. Colors: soft pastel colors
3. Mood: romantic
4. Quality: high quality
5. Characters: consistent character appearance
   - Boy: young man, medium skin tone, dark hair, neat mustache and goatee, warm expression
   - Girl: young woman, traveling companion, showing affection
6. Scene: romantic travel scene in %[1]s
7. Action: %[3]s (this is the specific scene action)
8. Pose: couple together, showing affection based on the scene action

OUTPUT FORMAT:
- Short and concise (50-80 words)
- Visual-focused (describe what you see, not emotions)
- MUST include: "cartoon style", "cute animated couple", "soft pastel colors", "romantic", "high quality", "consistent character appearance"
- Include: characters, location, style, pose, colors
- NO long descriptions or emotional text
- Direct, action-oriented language

Example format: "Cartoon style, cute animated couple (boy with dark hair and mustache, girl) %[3]s in [place], soft pastel colors, romantic scene, high quality, consistent character appearance, [specific visual details]"`, place, scene, action)
}

// FallbackScenePrompt is the deterministic image prompt for a scene, capped at
// MaxScenePromptRunes.
func FallbackScenePrompt(place string, scene int) string {
	p := fmt.Sprintf("Cartoon style, cute animated couple (boy with dark hair and mustache, girl) %s in %s, soft pastel colors, romantic, high quality, consistent character appearance", SceneAction(scene), place)
	return truncateRunes(p, MaxScenePromptRunes)
}

// FinalizeScenePrompt truncates generated to MaxScenePromptRunes. Only blank
// model output is replaced by the fallback prompt.
func FinalizeScenePrompt(generated, place string, scene int) (prompt string, fallback bool) {
	p := strings.TrimSpace(generated)
	if p == "" {
		return FallbackScenePrompt(place, scene), true
	}
	return truncateRunes(p, MaxScenePromptRunes), false
}

// MissingSceneTokens lists the style tokens absent from prompt.
func MissingSceneTokens(prompt string) []string {
	lower := strings.ToLower(prompt)
	var missing []string
	for _, token := range requiredSceneTokens {
		if !strings.Contains(lower, token) {
			missing = append(missing, token)
		}
	}
	return missing
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// SceneDescriptionPrompt asks for a 150-200 word cinematic scene description.
func SceneDescriptionPrompt(place string) string {
	return fmt.Sprintf(`Create a detailed, cinematic scene description for a romantic image generation prompt. 

Setting: A young couple is traveling together in %s

Style Requirements:
- Pixar + Studio Ghibli animation style
- Romantic and dreamy atmosphere
- Cinematic lighting with soft, warm colors
- High quality, detailed
- The couple should be together, showing affection
- Soft, pastel color palette
- Magical, whimsical feeling

Generate a detailed visual description (150-200 words) that can be used for image generation. Focus on:
- The location and environment details
- How the couple looks and their poses (they are together, showing love)
- The lighting and atmosphere
- The overall mood and feeling
- Visual details that capture the romantic, cinematic quality

Make it vivid and descriptive, suitable for creating a beautiful animated-style romantic scene.`, place)
}

// FallbackSceneDescription is served when no model describes the scene.
func FallbackSceneDescription(place string) string {
	return fmt.Sprintf("A romantic, dreamy scene in %[1]s. A young couple stands together, holding hands, with soft cinematic lighting. The style is Pixar and Studio Ghibli inspired, with warm pastel colors, magical atmosphere, and detailed animation-quality rendering. The couple shows affection, surrounded by the beautiful environment of %[1]s. Soft, golden hour lighting creates a romantic, cinematic mood.", place)
}
