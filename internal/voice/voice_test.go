package voice

import (
	"reflect"
	"testing"

	"github.com/dgnsrekt/sentispeech/internal/speech"
)

// TestSelectDefaultPreference tests that a preferred voice wins over list order.
func TestSelectDefaultPreference(t *testing.T) {
	voices := []speech.Voice{
		{Name: "Microsoft Zira", Lang: "en-US"},
		{Name: "Obscure Voice", Lang: "fr-FR"},
	}

	got, ok := SelectDefault(voices)
	if !ok {
		t.Fatal("expected a selection")
	}
	if got.Name != "Microsoft Zira" {
		t.Errorf("expected Microsoft Zira, got %s", got.Name)
	}
}

// TestSelectDefaultPriority tests that preferences are tried in priority order.
func TestSelectDefaultPriority(t *testing.T) {
	voices := []speech.Voice{
		{Name: "Samantha", Lang: "en-US"},
		{Name: "Microsoft David Desktop", Lang: "en-US"},
		{Name: "Daniel", Lang: "en-GB"},
	}

	got, _ := SelectDefault(voices)
	if got.Name != "Microsoft David Desktop" {
		t.Errorf("expected Microsoft David Desktop, got %s", got.Name)
	}
}

// TestSelectDefaultFallback tests fallback to the first English voice.
func TestSelectDefaultFallback(t *testing.T) {
	voices := []speech.Voice{
		{Name: "Thomas", Lang: "fr-FR"},
		{Name: "Karen", Lang: "en_AU"},
		{Name: "Moira", Lang: "en-IE"},
	}

	got, ok := SelectDefault(voices)
	if !ok || got.Name != "Karen" {
		t.Errorf("expected Karen, got %s (ok=%v)", got.Name, ok)
	}
}

// TestSelectDefaultEmpty tests that selection is deferred for an empty list.
func TestSelectDefaultEmpty(t *testing.T) {
	if _, ok := SelectDefault(nil); ok {
		t.Error("expected no selection for an empty list")
	}
	if _, ok := Resolve(nil, speech.Voice{Name: "Daniel"}); ok {
		t.Error("expected no resolution for an empty list")
	}
}

// TestPartition tests that English voices come first with stable order.
func TestPartition(t *testing.T) {
	voices := []speech.Voice{
		{Name: "a", Lang: "de-DE"},
		{Name: "b", Lang: "en-GB"},
		{Name: "c", Lang: "en"},
		{Name: "d", Lang: "EN_us"},
		{Name: "e", Lang: "fr-FR"},
		{Name: "f", Lang: "eng-XX"},
	}

	var names []string
	for _, v := range Partition(voices) {
		names = append(names, v.Name)
	}
	want := []string{"b", "d", "a", "c", "e", "f"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Partition() = %v, want %v", names, want)
	}
}

// TestResolveKeepsCurrent tests that a still-offered voice is kept.
func TestResolveKeepsCurrent(t *testing.T) {
	voices := []speech.Voice{
		{Name: "Microsoft Zira", Lang: "en-US"},
		{Name: "Alex", Lang: "en-US"},
	}

	got, ok := Resolve(voices, speech.Voice{Name: "alex"})
	if !ok || got.Name != "Alex" {
		t.Errorf("expected Alex, got %s", got.Name)
	}

	got, _ = Resolve(voices, speech.Voice{Name: "Gone"})
	if got.Name != "Microsoft Zira" {
		t.Errorf("expected default Microsoft Zira, got %s", got.Name)
	}
}
