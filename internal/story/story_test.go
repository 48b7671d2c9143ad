package story

import (
	"errors"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnswers(lang Language) Answers {
	return Answers{
		DreamDestination: "Paris",
		TimeOfDay:        "sunset",
		Mood:             "romantic",
		Activity:         "dancing",
		Weather:          "clear",
		OutfitStyle:      "elegant",
		SpecialEffect:    "fireflies",
		Language:         lang,
	}
}

func hasDevanagari(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Devanagari, r) {
			return true
		}
	}
	return false
}

func TestValidateReportsMissingFields(t *testing.T) {
	a := sampleAnswers(English)
	a.Mood = "  "
	a.Weather = ""

	err := a.Validate()
	require.ErrorIs(t, err, ErrMissingAnswers)
	var missing *MissingAnswersError
	require.True(t, errors.As(err, &missing))
	assert.ElementsMatch(t, []string{"mood", "weather"}, missing.Fields)

	require.NoError(t, sampleAnswers(Hindi).Validate())
}

func TestParseLanguageDefaultsToEnglish(t *testing.T) {
	assert.Equal(t, Hindi, ParseLanguage(" Hindi "))
	assert.Equal(t, Marathi, ParseLanguage("marathi"))
	assert.Equal(t, English, ParseLanguage("klingon"))
	assert.Equal(t, English, ParseLanguage(""))
}

func TestFallbackStoryEnglish(t *testing.T) {
	got := FallbackStory(sampleAnswers(English))
	assert.True(t, strings.HasPrefix(got, "In Paris, under the warm glow of sunset, two hearts"))
	assert.Contains(t, got, "The romantic and tender atmosphere")
	assert.Contains(t, got, "with fireflies dancing around them")
	assert.Equal(t, 4, len(strings.Split(got, "\n\n")))
	assert.False(t, hasDevanagari(got))
}

func TestFallbackStoryStaysInLanguage(t *testing.T) {
	for _, lang := range []Language{Hindi, Marathi} {
		got := FallbackStory(sampleAnswers(lang))
		assert.True(t, hasDevanagari(got), lang)
		assert.NotContains(t, got, "two hearts", lang)
		assert.NotContains(t, got, "sunset", lang)
		assert.Contains(t, got, "सूर्यास्त", lang)
	}
	assert.Contains(t, FallbackStory(sampleAnswers(Hindi)), "दो दिल")
	assert.Contains(t, FallbackStory(sampleAnswers(Marathi)), "दोन हृदये")
}

func TestFallbackStoryPassesUnknownEnumsThrough(t *testing.T) {
	a := sampleAnswers(English)
	a.TimeOfDay = "golden hour"
	a.Mood = "wistful"
	got := FallbackStory(a)
	assert.Contains(t, got, "under golden hour,")
	assert.Contains(t, got, "The wistful atmosphere")
}

func TestStoryPromptNamesLanguage(t *testing.T) {
	p := StoryPrompt(sampleAnswers(Marathi))
	assert.Contains(t, p, "COMPLETELY in Marathi (मराठी) language Use Devanagari script")
	assert.Contains(t, p, "- Location: Paris")

	en := StoryPrompt(sampleAnswers("french"))
	assert.Contains(t, en, "COMPLETELY in English language\n")
	assert.Contains(t, en, "Use standard English script")
}

func TestCouplePortraitPrompt(t *testing.T) {
	p := CouplePortraitPrompt(sampleAnswers(English))
	assert.Contains(t, p, "They are together at: Paris\nMood: romantic\nTime: sunset")
	assert.True(t, strings.HasSuffix(p, "Pixar / Disney style.\nFull body.\nBeautiful lighting.\nHigh quality."))
}

func TestSceneAction(t *testing.T) {
	assert.Equal(t, "arriving together", SceneAction(1))
	assert.Equal(t, "walking hand in hand", SceneAction(2))
	assert.Equal(t, "enjoying view", SceneAction(3))
	assert.Equal(t, "romantic close moment", SceneAction(4))
	assert.Equal(t, "traveling together", SceneAction(9))
}

func TestFinalizeScenePromptKeepsCompliantPrompt(t *testing.T) {
	in := "Cartoon style, cute animated couple in Goa, soft pastel colors, romantic, high quality, consistent character appearance"
	got, fallback := FinalizeScenePrompt(in, "Goa", 2)
	assert.False(t, fallback)
	assert.Equal(t, in, got)
}

func TestFinalizeScenePromptTruncatesToExactLength(t *testing.T) {
	long := "Cartoon style, cute animated couple, " + strings.Repeat("lanterns over the lake, ", 20) + "soft pastel colors, romantic, high quality, consistent character appearance"
	require.Greater(t, utf8.RuneCountInString(long), MaxScenePromptRunes)

	got, fallback := FinalizeScenePrompt(long, "Kyoto", 3)
	assert.False(t, fallback)
	assert.Equal(t, MaxScenePromptRunes, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(long, got))
	assert.NotEmpty(t, MissingSceneTokens(got))
}

func TestFinalizeScenePromptKeepsTokenlessText(t *testing.T) {
	got, fallback := FinalizeScenePrompt("A couple in Goa at dusk", "Goa", 1)
	assert.False(t, fallback)
	assert.Equal(t, "A couple in Goa at dusk", got)
	assert.Len(t, MissingSceneTokens(got), len(requiredSceneTokens))
}

func TestFinalizeScenePromptFallsBackOnBlank(t *testing.T) {
	got, fallback := FinalizeScenePrompt("  \n ", "Goa", 1)
	assert.True(t, fallback)
	assert.Contains(t, got, "arriving together in Goa")
	assert.Empty(t, MissingSceneTokens(got))
}

func TestFallbackScenePromptIsCapped(t *testing.T) {
	got := FallbackScenePrompt(strings.Repeat("Llanfairpwllgwyngyll ", 12), 2)
	assert.Equal(t, MaxScenePromptRunes, utf8.RuneCountInString(got))
}

func TestScenePromptRequestSceneNumbers(t *testing.T) {
	assert.Contains(t, ScenePromptRequest("Goa", 0), "Action: arriving together")
	assert.Contains(t, ScenePromptRequest("Goa", -2), "Action: traveling together")
	assert.Contains(t, ScenePromptRequest("Goa", 4), "Action: romantic close moment")
}

func TestTruncateRunesCountsCharacters(t *testing.T) {
	s := strings.Repeat("प्र", 150)
	got := truncateRunes(s, MaxScenePromptRunes)
	assert.Equal(t, MaxScenePromptRunes, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestDestinationStory(t *testing.T) {
	got, err := DestinationStory("sky")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "They embark on their journey to the endless sky, hand in hand"))

	_, err = DestinationStory("ocean")
	assert.ErrorIs(t, err, ErrInvalidDestination)
}

func TestPlaceholderImagesIsACopy(t *testing.T) {
	a := PlaceholderImages()
	require.Len(t, a, 4)
	a[0] = "mutated"
	assert.NotEqual(t, "mutated", PlaceholderImages()[0])
}

func TestKeyIgnoresWhitespaceAndLanguageCase(t *testing.T) {
	a := sampleAnswers(English)
	b := sampleAnswers("")
	b.DreamDestination = "  Paris "
	assert.Equal(t, a.Key(), b.Key())

	c := sampleAnswers(Hindi)
	assert.NotEqual(t, a.Key(), c.Key())
}
