package announce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestComposeMessage(t *testing.T) {
	ar := language.MustParse("ar-SA")
	en := language.MustParse("en-US")

	tests := []struct {
		name   string
		locale language.Tag
		number int
		window *int
		wname  *string
		want   string
	}{
		{"english with name", en, 14, intPtr(2), strPtr("Window B"), "Client number 14, Window B"},
		{"english with number", en, 14, intPtr(2), nil, "Client number 14, Window number 2"},
		{"english bare", en, 14, nil, nil, "Client number 14"},
		{"blank name falls back to number", en, 3, intPtr(6), strPtr("  "), "Client number 3, Window number 6"},
		{"arabic with name", ar, 14, intPtr(2), strPtr("Window B"), "عميل رقم ١٤ Window B"},
		{"arabic with number", ar, 105, intPtr(10), nil, "عميل رقم ١٠٥ شباك رقم ١٠"},
		{"arabic bare", ar, 9, nil, nil, "عميل رقم ٩"},
		{"unsupported locale uses english", language.French, 4, nil, nil, "Client number 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeMessage(tt.locale, tt.number, tt.window, tt.wname))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "٠", FormatNumber(language.Arabic, 0))
	assert.Equal(t, "٢٠٢٦", FormatNumber(language.MustParse("ar-EG"), 2026))
	assert.Equal(t, "2026", FormatNumber(language.English, 2026))
}
