package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Spanish

	message.SetString(lang, "sms.correct_answer_match", "¡Correcto!")
	message.SetString(lang, "sms.try_again", "No es correcto. ¡Inténtalo de nuevo!")
	message.SetString(lang, "sms.corrected_answer", "La respuesta correcta es %s. Continuemos.")
	message.SetString(lang, "sms.invalid_code", "No reconocimos ese código. Revísalo y envíalo de nuevo.")
}
