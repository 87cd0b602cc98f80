package router

import "strings"

// numberEntry pairs a value with its literal spoken forms. The dictionary is
// ordered and scanned front to back; the first form found anywhere in the
// transcript wins. Literal substring presence is the whole policy, so
// homophone collisions (e.g. "for" inside a word vs "four") are not
// disambiguated further.
type numberEntry struct {
	value int
	forms []string
}

// numberDictionary covers digits and number words in English, transliterated
// Malayalam, and Malayalam script. Multi-digit entries come first so "12"
// matches before its "1" substring does.
var numberDictionary = []numberEntry{
	{12, []string{"12", "twelve", "പന്ത്രണ്ട്", "panthrand"}},
	{11, []string{"11", "eleven", "പതിനൊന്ന്", "pathinonnu"}},
	{10, []string{"10", "ten", "പത്ത്", "pathu"}},
	{9, []string{"9", "nine", "ഒമ്പത്", "onpathu", "onpath"}},
	{8, []string{"8", "eight", "എട്ട്", "ettu"}},
	{7, []string{"7", "seven", "ഏഴ്", "ezhu"}},
	{6, []string{"6", "six", "ആറ്", "aaru"}},
	{5, []string{"5", "five", "അഞ്ച്", "anchu", "anju"}},
	{4, []string{"4", "four", "നാല്", "naalu", "nalu"}},
	{3, []string{"3", "three", "മൂന്ന്", "moonnu", "munnu"}},
	{2, []string{"2", "two", "രണ്ട്", "randu", "rand"}},
	{1, []string{"1", "one", "first", "ഒന്ന്", "onnu", "aadyam"}},
}

// ExtractNumber scans the transcript for the first number form present and
// returns its value. The second return is false when nothing matched.
func ExtractNumber(transcript string) (int, bool) {
	for _, entry := range numberDictionary {
		for _, form := range entry.forms {
			if strings.Contains(transcript, form) {
				return entry.value, true
			}
		}
	}
	return 0, false
}
