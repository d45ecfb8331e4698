package language

import "testing"

func TestDetect(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected Language
	}{
		{name: "plain english", text: "I can see the letters clearly", expected: English},
		{name: "signature word", text: "Habari, I am ready", expected: Swahili},
		{name: "mostly swahili", text: "nina miwani kwa kusoma", expected: Swahili},
		{name: "empty", text: "", expected: English},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := Detect(testCase.text); got != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if got, err := Parse("Kiswahili"); err != nil || got != Swahili {
		t.Fatalf("expected swahili, got %q (err %v)", got, err)
	}
	if _, err := Parse("fr"); err == nil {
		t.Fatalf("expected an error for an unsupported language")
	}
	if got := Language("fr").OrDefault(); got != English {
		t.Fatalf("expected fallback to english, got %q", got)
	}
}
