package main

import (
	_ "github.com/eleven-am/voice-translator/docs"
	"github.com/eleven-am/voice-translator/internal/bootstrap"
)

// @title Voice Translator API
// @version 1.0.0
// @description Relays queued translation and transcription requests to a speech backend over persistent websocket channels.

// @BasePath /

func main() {
	bootstrap.Run()
}
