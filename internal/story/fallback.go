package story

import "strings"

type phraseTable struct {
	time map[string]string
	mood map[string]string
	body string
}

// Template placeholders: {dest} {time} {mood} {activity} {weather} {effect} {outfit}.
var fallbackTables = map[Language]phraseTable{
	English: {
		time: map[string]string{
			"morning": "the golden light of dawn",
			"sunset":  "the warm glow of sunset",
			"night":   "the magical hours of night",
		},
		mood: map[string]string{
			"romantic": "romantic and tender",
			"cozy":     "cozy and intimate",
			"fun":      "playful and joyful",
			"magical":  "magical and enchanting",
		},
		body: `In {dest}, under {time}, two hearts found each other in a moment that would change everything. The {mood} atmosphere surrounded them as they were {activity}, creating memories that would last forever.

The {weather} weather added to the perfect setting, with {effect} dancing around them like nature's own celebration of their love. Dressed in {outfit} attire, they moved together in perfect harmony, each moment more beautiful than the last.

As they continued their journey together, they knew this was just the beginning of their story. Every step, every glance, every shared smile was a promise of the beautiful future that lay ahead. In that moment, surrounded by the magic of {dest}, they found not just each other, but the beginning of forever.

And so, their love story continues, written in the stars and carried on the gentle breeze, a testament to the power of connection, the beauty of shared dreams, and the magic that happens when two souls find their way to each other.`,
	},
	Hindi: {
		time: map[string]string{
			"morning": "सुबह की सुनहरी रोशनी",
			"sunset":  "सूर्यास्त की गर्म रोशनी",
			"night":   "रात के जादुई पल",
		},
		mood: map[string]string{
			"romantic": "रोमांटिक और कोमल",
			"cozy":     "आरामदायक और अंतरंग",
			"fun":      "मजेदार और खुश",
			"magical":  "जादुई और मनमोहक",
		},
		body: `{dest} में, {time} के नीचे, दो दिल एक पल में मिले जो सब कुछ बदल देगा। {mood} माहौल ने उन्हें घेर लिया जब वे {activity} कर रहे थे, हमेशा के लिए यादें बना रहे थे।

{weather} मौसम ने सही सेटिंग में जोड़ दिया, {effect} उनके चारों ओर नृत्य कर रहे थे जैसे प्रकृति उनके प्यार का जश्न मना रही हो। {outfit} पोशाक में सजे, वे एक साथ सहजता से चल रहे थे, हर पल पिछले से अधिक सुंदर।

जैसे-जैसे वे अपनी यात्रा जारी रखते, उन्हें पता था कि यह उनकी कहानी की शुरुआत थी। हर कदम, हर नज़र, हर साझा मुस्कान एक वादा था उस सुंदर भविष्य का जो आगे था। उस पल में, {dest} के जादू से घिरे, उन्हें न केवल एक-दूसरे को मिला, बल्कि हमेशा के लिए शुरुआत मिली।

और इस तरह, उनकी प्रेम कहानी जारी है, सितारों में लिखी हुई और हल्की हवा पर ले जाई जा रही, जुड़ाव की शक्ति, साझे सपनों की सुंदरता, और उस जादू का प्रमाण जो तब होता है जब दो आत्माएं एक-दूसरे का रास्ता खोजती हैं।`,
	},
	Marathi: {
		time: map[string]string{
			"morning": "सकाळचा सोन्यासारखा प्रकाश",
			"sunset":  "सूर्यास्ताची उबदार रोशनी",
			"night":   "रात्रीचे जादुई क्षण",
		},
		mood: map[string]string{
			"romantic": "रोमँटिक आणि कोमल",
			"cozy":     "आरामदायक आणि अंतरंग",
			"fun":      "मजेदार आणि आनंदी",
			"magical":  "जादुई आणि मोहक",
		},
		body: `{dest} मध्ये, {time} च्या खाली, दोन हृदये एका क्षणात भेटली ज्याने सर्वकाही बदलून टाकले। {mood} वातावरणाने त्यांना वेढले जेव्हा ते {activity} करत होते, कायमस्वरूपी आठवणी निर्माण करत होते।

{weather} हवामानाने परिपूर्ण सेटिंगमध्ये जोडले, {effect} त्यांच्या सभोवती नृत्य करत होते जसे निसर्ग त्यांच्या प्रेमाचा सण साजरा करत होता। {outfit} पोशाकात सजलेले, ते एकत्र सहजतेने चालत होते, प्रत्येक क्षण मागीलपेक्षा अधिक सुंदर।

जसजसे ते आपल्या प्रवासाला सुरुवात करत होते, त्यांना माहित होते की ही त्यांच्या कथेची सुरुवात होती। प्रत्येक पाऊल, प्रत्येक नजर, प्रत्येक सामायिक स्मित हे एक वचन होते त्या सुंदर भविष्याचे जे पुढे होते। त्या क्षणी, {dest} च्या जादूने वेढलेले, त्यांना फक्त एकमेकांना सापडले नाही, तर कायमस्वरूपी सुरुवात सापडली।

आणि अशा प्रकारे, त्यांची प्रेमकथा सुरू आहे, ताऱ्यांमध्ये लिहिलेली आणि सौम्य वाऱ्यावर नेली जात आहे, जोडणीच्या शक्तीचा, सामायिक स्वप्नांच्या सौंदर्याचा, आणि ज्या जादूचा तो घडतो जेव्हा दोन आत्मा एकमेकांचा मार्ग शोधतात।`,
	},
}

// FallbackStory renders the deterministic four-paragraph story for a.
// Known time and mood enums are translated; anything else passes through raw.
func FallbackStory(a Answers) string {
	a = a.Normalize()
	table, ok := fallbackTables[a.Language]
	if !ok {
		table = fallbackTables[English]
	}
	lookup := func(m map[string]string, key string) string {
		if v, ok := m[strings.ToLower(key)]; ok {
			return v
		}
		return key
	}
	r := strings.NewReplacer(
		"{dest}", a.DreamDestination,
		"{time}", lookup(table.time, a.TimeOfDay),
		"{mood}", lookup(table.mood, a.Mood),
		"{activity}", a.Activity,
		"{weather}", a.Weather,
		"{effect}", a.SpecialEffect,
		"{outfit}", a.OutfitStyle,
	)
	return r.Replace(table.body)
}
