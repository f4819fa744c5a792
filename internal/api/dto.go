package api

import "github.com/eleven-am/voice-translator/internal/translator"

type TranslateRequest struct {
	Text           string `json:"text" example:"Good morning"`
	SourceLanguage string `json:"source_language,omitempty" example:"EN"`
	TargetLanguage string `json:"target_language,omitempty" example:"ES"`
}

type TranslateResponse struct {
	ID             string `json:"id"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	QueueLength    int    `json:"queue_length"`
}

type LanguagesRequest struct {
	SourceLanguage string `json:"source_language" example:"EN"`
	TargetLanguage string `json:"target_language" example:"FR"`
}

type LanguagesResponse struct {
	Languages translator.Languages `json:"languages"`
	Changed   bool                 `json:"changed"`
}

// TranscriptionResponse carries an empty text and speech=false when the
// clip held no speech.
type TranscriptionResponse struct {
	Text   string `json:"text" example:"hola"`
	Speech bool   `json:"speech" example:"true"`
}

type ClearErrorResponse struct {
	Cleared bool `json:"cleared"`
}
