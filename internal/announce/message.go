package announce

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

var arabicIndicDigits = [10]rune{'٠', '١', '٢', '٣', '٤', '٥', '٦', '٧', '٨', '٩'}

// Message is one spoken line of an announcement.
type Message struct {
	Locale language.Tag
	Text   string
}

// ComposeMessage renders "client number N" plus the window clause in the
// given locale. A window name is preferred over a window number; with
// neither, the clause is left out. Unsupported locales fall back to English.
func ComposeMessage(locale language.Tag, queueNumber int, windowNumber *int, windowName *string) string {
	name := ""
	if windowName != nil {
		name = strings.TrimSpace(*windowName)
	}

	if isArabic(locale) {
		text := "عميل رقم " + FormatNumber(locale, queueNumber)
		switch {
		case name != "":
			text += " " + name
		case windowNumber != nil:
			text += " شباك رقم " + FormatNumber(locale, *windowNumber)
		}
		return text
	}

	text := fmt.Sprintf("Client number %d", queueNumber)
	switch {
	case name != "":
		text += ", " + name
	case windowNumber != nil:
		text += fmt.Sprintf(", Window number %d", *windowNumber)
	}
	return text
}

// FormatNumber writes n with the locale's native digits.
func FormatNumber(locale language.Tag, n int) string {
	s := strconv.Itoa(n)
	if !isArabic(locale) {
		return s
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(arabicIndicDigits[r-'0'])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isArabic(locale language.Tag) bool {
	base, _ := locale.Base()
	return base.String() == "ar"
}
