// Package events defines what the guide controller publishes to observers.
//
// Event kinds are grouped by namespace:
//
//   - session.*: activation state, language and quiet changes.
//   - speech.*: lifecycle of every utterance the guide says.
//   - recognition.*: arming, transcripts and recognizer failures.
//   - script.*: recorded answers and script completion.
//
// Events are values. Observers run on the controller goroutine and must not
// block.
//
// session events
//
//   - StateChanged (session.state_changed): controller state transition.
//   - LanguageChanged (session.language_changed): conversation language
//     switched, by command or detection.
//
// speech events
//
//   - SpeechQueued (speech.queued): request accepted by the speech queue.
//   - SpeechStarted (speech.started): synthesis began.
//   - SpeechFinished (speech.finished): synthesis ended, Err is set when it
//     failed or was cancelled.
//
// recognition events
//
//   - RecognitionArmed (recognition.armed): recognizer listening.
//   - RecognitionDisarmed (recognition.disarmed): recognizer stopped.
//   - TranscriptReceived (recognition.transcript): accepted final transcript.
//   - RecognitionFailed (recognition.failed): recognizer reported an error.
//
// script events
//
//   - AnswerRecorded (script.answer_recorded): answer stored for a question.
//   - ScriptCompleted (script.completed): closing summary queued.
package events
