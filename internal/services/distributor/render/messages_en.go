package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "sms.correct_answer_match", "Correct!")
	message.SetString(lang, "sms.try_again", "That's not quite right. Try again!")
	message.SetString(lang, "sms.corrected_answer", "The correct answer is %s. Let's move on.")
	message.SetString(lang, "sms.invalid_code", "We didn't recognize that code. Check it and text it again.")
}
