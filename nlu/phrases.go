package nlu

import (
	"strings"

	"github.com/iai-group/MovieBot-sub000/annotate"
	"github.com/iai-group/MovieBot-sub000/types"
)

// Phrase lists are written in normalized form: lowercase, no apostrophes.
var basicPhrases = []struct {
	intent  types.Intent
	phrases []string
}{
	{types.IntentBye, []string{"bye", "goodbye", "bye bye", "see you", "quit", "exit", "thats all", "i am done", "im done", "stop"}},
	{types.IntentHi, []string{"hi", "hello", "hey", "hi there", "hello there", "good morning", "good evening", "good afternoon", "howdy"}},
	{types.IntentAcknowledge, []string{"ok", "okay", "sure", "alright", "all right", "fine", "cool", "thanks", "thank you", "got it"}},
	{types.IntentDeny, []string{"no", "nope", "nah", "not really", "no thanks"}},
	{types.IntentRestart, []string{"restart", "start over", "start again", "reset", "new search", "lets start over"}},
}

var (
	dontCarePhrases = []string{
		"dont care", "do not care", "doesnt matter", "does not matter", "no preference",
		"any", "anything", "whatever", "surprise me", "i dont mind", "dont mind", "either",
	}
	dontLikePhrases = []string{
		"dont like", "do not like", "not interested", "something else", "another one",
		"not for me", "boring", "hate it", "no way", "dislike", "not that one",
	}
	watchedPhrases = []string{
		"watched", "seen it", "saw it", "already seen", "i have seen", "ive seen", "seen that", "watched it",
	}
	acceptPhrases = []string{
		"yes", "yeah", "yep", "i like it", "i like this", "sounds good", "sounds great", "love it",
		"perfect", "ill watch", "i will watch", "great choice", "that one", "i want to watch it",
	}
	negationPhrases = []string{
		"not", "no", "dont want", "do not want", "dont like", "without", "except",
		"anything but", "hate", "nothing", "never", "other than", "rather not",
	}
	removePhrases = []string{
		"forget", "remove", "drop", "never mind", "nevermind", "no longer", "instead of",
	}
	directorTriggers = []string{
		"directed by", "director", "directors", "made by", "filmmaker", "from director", "by director",
	}
	actorTriggers = []string{
		"starring", "with", "actor", "actors", "actress", "played by", "featuring", "stars", "acted by", "cast",
	}
)

func padded(text string) string { return " " + text + " " }

// hasPhrase reports whether norm contains phrase as a run of whole words.
func hasPhrase(norm, phrase string) bool {
	return strings.Contains(padded(norm), padded(phrase))
}

func hasAny(norm string, phrases []string) bool {
	for _, p := range phrases {
		if hasPhrase(norm, p) {
			return true
		}
	}
	return false
}

// lastPhrase returns the end offset of the latest occurrence of any phrase
// in norm, or -1.
func lastPhrase(norm string, phrases []string) int {
	best := -1
	text := padded(norm)
	for _, p := range phrases {
		if i := strings.LastIndex(text, padded(p)); i >= 0 {
			if end := i + len(p) + 1; end > best {
				best = end
			}
		}
	}
	return best
}

// basicIntent matches the whole utterance against the fixed phrase lists.
func basicIntent(norm string) (types.Intent, bool) {
	for _, group := range basicPhrases {
		for _, p := range group.phrases {
			if norm == p {
				return group.intent, true
			}
		}
	}
	return "", false
}

func phrasesFor(intent types.Intent) []string {
	for _, group := range basicPhrases {
		if group.intent == intent {
			return group.phrases
		}
	}
	return nil
}

func isBasicPhrase(text string) bool {
	_, ok := basicIntent(annotate.Normalize(text))
	return ok
}
