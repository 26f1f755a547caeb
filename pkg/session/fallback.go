package session

import "strings"

// fallbackReplies are spoken when every inference provider fails. The
// turn still completes so the farmer hears something rather than
// silence.
var fallbackReplies = map[string]string{
	"hi": "माफ़ कीजिए, मैं अभी आपके सवाल का जवाब नहीं दे पा रही हूँ। कृपया थोड़ी देर बाद फिर से पूछें।",
	"mr": "क्षमस्व, मी सध्या तुमच्या प्रश्नाचे उत्तर देऊ शकत नाही. कृपया थोड्या वेळाने पुन्हा विचारा.",
	"bn": "দুঃখিত, আমি এখন আপনার প্রশ্নের উত্তর দিতে পারছি না। অনুগ্রহ করে কিছুক্ষণ পরে আবার জিজ্ঞাসা করুন।",
	"ta": "மன்னிக்கவும், உங்கள் கேள்விக்கு இப்போது பதிலளிக்க முடியவில்லை. சிறிது நேரம் கழித்து மீண்டும் கேளுங்கள்.",
	"te": "క్షమించండి, మీ ప్రశ్నకు ప్రస్తుతం సమాధానం ఇవ్వలేకపోతున్నాను. దయచేసి కాసేపటి తర్వాత మళ్లీ అడగండి.",
	"en": "Sorry, I cannot answer your question right now. Please try again in a little while.",
}

// FallbackReply returns the degraded-mode reply for a language code
// such as "hi-IN". Unknown languages fall back to English.
func FallbackReply(language string) string {
	lang := language
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if reply, ok := fallbackReplies[strings.ToLower(lang)]; ok {
		return reply
	}
	return fallbackReplies["en"]
}
