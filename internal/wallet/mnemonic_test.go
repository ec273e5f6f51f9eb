package wallet

import (
	"errors"
	"strings"
	"testing"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
)

const testPhrase24 = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

func TestGenerateMnemonic(t *testing.T) {
	for _, words := range []int{Words12, Words24} {
		mnemonic, err := GenerateMnemonic(words)
		if err != nil {
			t.Fatalf("GenerateMnemonic(%d) error: %v", words, err)
		}
		if n := len(strings.Fields(mnemonic)); n != words {
			t.Errorf("word count = %d, want %d", n, words)
		}
		if !ValidateMnemonic(mnemonic, words) {
			t.Errorf("generated %d-word mnemonic should validate", words)
		}
	}
}

func TestGenerateMnemonic_Unique(t *testing.T) {
	m1, err := GenerateMnemonic(Words24)
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	m2, err := GenerateMnemonic(Words24)
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}

	if m1 == m2 {
		t.Error("two generated mnemonics should not be identical")
	}
}

func TestGenerateMnemonic_UnsupportedCount(t *testing.T) {
	for _, words := range []int{0, 15, 18, 25} {
		if _, err := GenerateMnemonic(words); !errors.Is(err, walleterr.ErrWordCount) {
			t.Errorf("GenerateMnemonic(%d) error = %v, want ErrWordCount", words, err)
		}
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		words    int
		valid    bool
	}{
		{"valid 24-word", testPhrase24, Words24, true},
		{"valid 12-word", testPhrase, Words12, true},
		{"12-word checked as 24", testPhrase, Words24, false},
		{"24-word checked as 12", testPhrase24, Words12, false},
		{"bad checksum", strings.Replace(testPhrase, "about", "abandon", 1), Words12, false},
		{"unknown word", strings.Replace(testPhrase, "about", "zzzzz", 1), Words12, false},
		{"empty", "", Words12, false},
		{"unsupported count", testPhrase, 15, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMnemonic(tt.mnemonic, tt.words); got != tt.valid {
				t.Errorf("ValidateMnemonic() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestParseMnemonic(t *testing.T) {
	got, err := ParseMnemonic("  Abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon ABOUT\n")
	if err != nil {
		t.Fatalf("ParseMnemonic() error: %v", err)
	}
	if got != testPhrase {
		t.Errorf("ParseMnemonic() = %q", got)
	}

	_, err = ParseMnemonic(strings.Replace(testPhrase, "about", "abandon", 1))
	if !errors.Is(err, walleterr.ErrInvalidPhrase) {
		t.Errorf("ParseMnemonic(bad checksum) error = %v, want ErrInvalidPhrase", err)
	}
}
