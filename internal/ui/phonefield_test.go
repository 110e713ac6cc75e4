package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/language"

	"phonefield/internal/catalog"
	pferrors "phonefield/internal/errors"
)

var testCatalog *catalog.Catalog

func testCat(t *testing.T) *catalog.Catalog {
	t.Helper()
	if testCatalog == nil {
		c, err := catalog.New(language.English)
		if err != nil {
			t.Fatalf("build catalog: %v", err)
		}
		testCatalog = c
	}
	return testCatalog
}

func typeRunes(f PhoneField, s string) PhoneField {
	for _, r := range s {
		f, _ = f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return f
}

func keyPress(f PhoneField, k tea.KeyType) (PhoneField, tea.Cmd) {
	return f.Update(tea.KeyMsg{Type: k})
}

func TestNewPhoneField(t *testing.T) {
	f := NewPhoneField(testCat(t))
	if !f.Pristine() {
		t.Error("expected new field to be pristine")
	}
	if f.State() != PickerClosed {
		t.Errorf("expected initial picker state Closed, got %v", f.State())
	}
	if f.Value() != "" {
		t.Errorf("expected empty canonical value, got %q", f.Value())
	}
	if f.MaxVisible != 7 {
		t.Errorf("expected default MaxVisible 7, got %d", f.MaxVisible)
	}
}

func TestPristineTransition(t *testing.T) {
	t.Run("TypedNationalEqualsInternational", func(t *testing.T) {
		// Typing "0123456789" with no default region must equal
		// feeding "+123456789": trunk digit dropped, "+" seeded once.
		typed := NewPhoneField(testCat(t))
		typed.Focus()
		typed = typeRunes(typed, "0123456789")

		seeded := NewPhoneField(testCat(t)).WithInitialValue("+123456789")

		if typed.DisplayText() != seeded.DisplayText() {
			t.Errorf("display %q != %q", typed.DisplayText(), seeded.DisplayText())
		}
		if typed.Value() != seeded.Value() {
			t.Errorf("value %q != %q", typed.Value(), seeded.Value())
		}
	})

	t.Run("PlusSeededExactlyOnce", func(t *testing.T) {
		f := NewPhoneField(testCat(t))
		f.Focus()
		f = typeRunes(f, "07")
		if !strings.HasPrefix(f.DisplayText(), "+7") {
			t.Errorf("display = %q, want +7 prefix (trunk 0 dropped)", f.DisplayText())
		}
		if f.Pristine() {
			t.Error("field should no longer be pristine after first edit")
		}
	})

	t.Run("DefaultRegionSuppressesSeeding", func(t *testing.T) {
		f := NewPhoneField(testCat(t)).WithDefaultRegion("CH")
		f.Focus()
		f = typeRunes(f, "079")
		if strings.HasPrefix(f.DisplayText(), "+") {
			t.Errorf("display = %q, national input must stay national", f.DisplayText())
		}
	})
}

func TestEmptyReset(t *testing.T) {
	f := NewPhoneField(testCat(t))
	f.Focus()
	f = typeRunes(f, "+41791234567")
	if f.Value() == "" {
		t.Fatal("expected a canonical value before reset")
	}

	for i := 0; i < 40 && f.DisplayText() != ""; i++ {
		f, _ = keyPress(f, tea.KeyBackspace)
	}
	if f.DisplayText() != "" {
		t.Fatalf("field not emptied, display = %q", f.DisplayText())
	}
	if !f.Pristine() {
		t.Error("emptied field must be pristine again")
	}
	if f.Value() != "" {
		t.Errorf("emptied field must have no canonical value, got %q", f.Value())
	}
	if f.DetectedRegion() != "" {
		t.Errorf("emptied field must have no region, got %q", f.DetectedRegion())
	}
}

func TestCaretEndPinning(t *testing.T) {
	f := NewPhoneField(testCat(t))
	f.Focus()
	// Separators get inserted as the number grows; the caret must stay
	// pinned to the end throughout.
	for _, r := range "+41791234567" {
		f, _ = f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		if want := len([]rune(f.DisplayText())); f.CaretOffset() != want {
			t.Fatalf("after %q: caret = %d, want end %d (display %q)",
				string(r), f.CaretOffset(), want, f.DisplayText())
		}
	}
	if f.DisplayText() != "+41 79 123 45 67" {
		t.Errorf("display = %q, want %q", f.DisplayText(), "+41 79 123 45 67")
	}
}

func TestCaretPreservedMidText(t *testing.T) {
	f := NewPhoneField(testCat(t)).WithInitialValue("+41791234567")
	display := f.DisplayText() // "+41 79 123 45 67"

	// Delete the digit at offset 5 ("9"), caret left at 5.
	runes := []rune(display)
	raw := string(runes[:5]) + string(runes[6:])
	_ = f.applyEdit(raw, 5)

	if f.CaretOffset() != 5 {
		t.Errorf("caret = %d, want preserved 5 (display %q)", f.CaretOffset(), f.DisplayText())
	}
	if f.CaretOffset() > len([]rune(f.DisplayText())) {
		t.Error("caret beyond display text")
	}
}

func TestFormatterIdempotentThroughEngine(t *testing.T) {
	f := NewPhoneField(testCat(t)).WithInitialValue("+41791234567")
	display, value := f.DisplayText(), f.Value()

	_ = f.applyEdit(display, len([]rune(display)))

	if f.DisplayText() != display {
		t.Errorf("re-applied display %q != %q", f.DisplayText(), display)
	}
	if f.Value() != value {
		t.Errorf("re-applied value %q != %q", f.Value(), value)
	}
}

func TestPickerOpenClose(t *testing.T) {
	t.Run("ArrowDownOpens", func(t *testing.T) {
		f := NewPhoneField(testCat(t))
		f.Focus()
		f, cmd := keyPress(f, tea.KeyDown)
		if f.State() != PickerOpen {
			t.Fatal("expected picker to open on ArrowDown")
		}
		if cmd == nil {
			t.Error("open must acquire the reposition subscription")
		}
		if f.HighlightedRegion() != "" {
			t.Errorf("no detected region: highlight must be none, got %q", f.HighlightedRegion())
		}
	})

	t.Run("HighlightInitializedToDetectedRegion", func(t *testing.T) {
		f := NewPhoneField(testCat(t)).WithInitialValue("+41791234567")
		f.Focus()
		f, _ = keyPress(f, tea.KeyDown)
		if f.HighlightedRegion() != "CH" {
			t.Errorf("highlight = %q, want CH", f.HighlightedRegion())
		}
	})

	t.Run("EscapeClosesWithoutCommit", func(t *testing.T) {
		f := NewPhoneField(testCat(t)).WithInitialValue("+4179")
		f.Focus()
		display := f.DisplayText()
		f, _ = keyPress(f, tea.KeyDown)
		f, _ = keyPress(f, tea.KeyEsc)
		if f.State() != PickerClosed {
			t.Fatal("expected Escape to close the picker")
		}
		if f.DisplayText() != display {
			t.Errorf("display changed on Escape: %q != %q", f.DisplayText(), display)
		}
	})

	t.Run("DigitClosesAndForwards", func(t *testing.T) {
		f := NewPhoneField(testCat(t)).WithInitialValue("+4179")
		f.Focus()
		f, _ = keyPress(f, tea.KeyDown)
		f, _ = f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
		if f.State() != PickerClosed {
			t.Fatal("digit must close the picker")
		}
		if got := f.DisplayText(); !strings.Contains(strings.ReplaceAll(got, " ", ""), "+41791") {
			t.Errorf("digit not forwarded into the field: display %q", got)
		}
	})
}

func TestPickerWrapAround(t *testing.T) {
	cat := testCat(t)
	f := NewPhoneField(cat)
	f.Focus()
	f, _ = keyPress(f, tea.KeyDown) // open, no highlight

	f, _ = keyPress(f, tea.KeyDown)
	first := f.HighlightedRegion()
	if first != cat.At(0).RegionCode {
		t.Fatalf("first ArrowDown: highlight %q, want first entry %q", first, cat.At(0).RegionCode)
	}

	// A full cycle of N presses returns to the first entry.
	for i := 0; i < cat.Len(); i++ {
		f, _ = keyPress(f, tea.KeyDown)
	}
	if f.HighlightedRegion() != first {
		t.Errorf("after full cycle: highlight %q, want %q", f.HighlightedRegion(), first)
	}

	// ArrowUp from the first entry wraps to the last.
	f, _ = keyPress(f, tea.KeyUp)
	if want := cat.At(cat.Len() - 1).RegionCode; f.HighlightedRegion() != want {
		t.Errorf("ArrowUp from first: highlight %q, want last entry %q", f.HighlightedRegion(), want)
	}
}

func TestPickerSearch(t *testing.T) {
	f := NewPhoneField(testCat(t))
	f.Focus()
	f, _ = keyPress(f, tea.KeyDown)
	f = typeRunes(f, "switzerland")

	if f.SearchQuery() != "switzerland" {
		t.Fatalf("search query = %q", f.SearchQuery())
	}
	if f.FilteredLen() == 0 {
		t.Fatal("expected at least one match for switzerland")
	}
	if f.HighlightedRegion() != "CH" {
		t.Errorf("highlight = %q, want CH", f.HighlightedRegion())
	}

	f, _ = keyPress(f, tea.KeyEnter)
	if f.State() != PickerClosed {
		t.Fatal("Enter must commit and close")
	}
	if f.DisplayText() != "+41" {
		t.Errorf("display = %q, want +41", f.DisplayText())
	}
}

func TestCommitConsistency(t *testing.T) {
	t.Run("ValidNationalNumberAfterCommit", func(t *testing.T) {
		f := NewPhoneField(testCat(t)).
			WithDefaultRegion("CH").
			WithInitialValue("0791234567")
		entry, _ := testCat(t).ByRegion("CH")
		_ = f.commitCountry(entry)

		if f.Value() != "+41791234567" {
			t.Errorf("value = %q, want +41791234567", f.Value())
		}
		if !f.CheckValidity() {
			t.Errorf("expected valid after commit, message %q", f.ValidationMessage())
		}
		if want := len([]rune(f.DisplayText())); f.CaretOffset() != want {
			t.Errorf("caret = %d, want end %d", f.CaretOffset(), want)
		}
	})

	t.Run("MobileOnlyRejectsUnclassifiedNumber", func(t *testing.T) {
		// US metadata cannot classify mobile vs fixed line.
		f := NewPhoneField(testCat(t)).
			WithMobileOnly(true).
			WithInitialValue("+12125551234")
		if f.CheckValidity() {
			t.Fatal("expected mobile-only validation to fail for a US number")
		}
		if f.ValidationMessage() != "invalid mobile number" {
			t.Errorf("message = %q, want %q", f.ValidationMessage(), "invalid mobile number")
		}
		if err := f.Validate(); !pferrors.IsCode(err, pferrors.CodeInvalidMobileNumber) {
			t.Errorf("expected invalid_mobile_number error, got %v", err)
		}
	})
}

func TestCheckValidity(t *testing.T) {
	t.Run("IncompleteNumberInvalid", func(t *testing.T) {
		f := NewPhoneField(testCat(t)).WithInitialValue("+4179")
		if f.CheckValidity() {
			t.Fatal("incomplete number must be invalid")
		}
		if f.ValidationMessage() != "invalid phone number" {
			t.Errorf("message = %q, want %q", f.ValidationMessage(), "invalid phone number")
		}
	})

	t.Run("ValidNumberClearsMessage", func(t *testing.T) {
		f := NewPhoneField(testCat(t)).WithInitialValue("+4179")
		f.CheckValidity()
		f = f.WithInitialValue("+41791234567")
		if !f.CheckValidity() {
			t.Fatal("expected valid")
		}
		if f.ValidationMessage() != "" {
			t.Errorf("message should clear on success, got %q", f.ValidationMessage())
		}
	})
}

func TestEndToEnd(t *testing.T) {
	f := NewPhoneField(testCat(t)).WithInitialValue("+41791234567")

	if f.Value() != "+41791234567" {
		t.Errorf("canonical value = %q, want +41791234567", f.Value())
	}
	if f.DetectedRegion() != "CH" {
		t.Errorf("detected region = %q, want CH", f.DetectedRegion())
	}
	if !f.CheckValidity() {
		t.Error("expected checkValidity() = true")
	}
}

func TestRepositionSubscriptionLifecycle(t *testing.T) {
	f := NewPhoneField(testCat(t))
	f.Focus()
	f, _ = keyPress(f, tea.KeyDown)
	gen := f.pickerGen

	// A live tick keeps the loop going.
	f, cmd := f.Update(repositionTickMsg{generation: gen})
	if cmd == nil {
		t.Fatal("live tick must reschedule")
	}

	// Closing bumps the generation: the pending tick is dropped and
	// the subscription ends exactly once.
	f, _ = keyPress(f, tea.KeyEsc)
	f, cmd = f.Update(repositionTickMsg{generation: gen})
	if cmd != nil {
		t.Fatal("stale tick after close must not reschedule")
	}

	// Reopening starts a fresh subscription under a new token.
	f, _ = keyPress(f, tea.KeyDown)
	if f.pickerGen == gen {
		t.Error("reopen must use a new generation")
	}
	f, cmd = f.Update(repositionTickMsg{generation: gen})
	if cmd != nil {
		t.Error("tick from the previous open must stay dead")
	}
}

func TestDeferredCaretPlacement(t *testing.T) {
	f := NewPhoneField(testCat(t)).WithInitialValue("+41791234567")
	end := len([]rune(f.DisplayText()))

	// A stale placement (older edit) must lose against the newer edit.
	f, _ = f.Update(caretPlacedMsg{seq: f.editSeq - 1, offset: 1})
	if f.CaretOffset() != end {
		t.Errorf("stale caret placement applied: caret %d, want %d", f.CaretOffset(), end)
	}

	// The current placement wins.
	f, _ = f.Update(caretPlacedMsg{seq: f.editSeq, offset: 3})
	if f.CaretOffset() != 3 {
		t.Errorf("caret = %d, want 3", f.CaretOffset())
	}
}

func TestDeferredBlurCheck(t *testing.T) {
	t.Run("GenuineBlur", func(t *testing.T) {
		f := NewPhoneField(testCat(t))
		f.Focus()
		cmd := f.RequestBlur()
		if cmd == nil {
			t.Fatal("expected a deferred blur check")
		}
		f, _ = f.Update(cmd())
		if f.Focused() {
			t.Error("expected field to blur after the deferred check")
		}
	})

	t.Run("PickerInteractionCancelsBlur", func(t *testing.T) {
		f := NewPhoneField(testCat(t))
		f.Focus()
		f, _ = keyPress(f, tea.KeyDown) // open picker
		cmd := f.RequestBlur()

		// Interacting with the overlay proves focus never really left.
		f, _ = keyPress(f, tea.KeyDown)

		f, _ = f.Update(cmd())
		if !f.Focused() {
			t.Error("transient focus move must not blur the field")
		}
		if f.State() != PickerOpen {
			t.Error("picker must stay open across a cancelled blur")
		}
	})

	t.Run("RefocusInvalidatesPendingCheck", func(t *testing.T) {
		f := NewPhoneField(testCat(t))
		f.Focus()
		cmd := f.RequestBlur()
		f.Focus() // focus came straight back

		f, _ = f.Update(cmd())
		if !f.Focused() {
			t.Error("stale blur check must not blur a refocused field")
		}
	})
}

func TestMouse(t *testing.T) {
	click := func(x, y int) tea.MouseMsg {
		return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	}

	t.Run("RowClickCommits", func(t *testing.T) {
		cat := testCat(t)
		f := NewPhoneField(cat)
		f.Focus()
		f, _ = keyPress(f, tea.KeyDown)

		// First visible row sits directly below the field box.
		f, _ = f.Update(click(2, fieldHeight))
		if f.State() != PickerClosed {
			t.Fatal("row click must commit and close")
		}
		if want := "+" + cat.At(0).CallingCode; f.DisplayText() != want {
			t.Errorf("display = %q, want %q", f.DisplayText(), want)
		}
	})

	t.Run("OutsideClickCloses", func(t *testing.T) {
		f := NewPhoneField(testCat(t)).WithInitialValue("+4179")
		f.Focus()
		display := f.DisplayText()
		f, _ = keyPress(f, tea.KeyDown)

		f, _ = f.Update(click(0, fieldHeight+f.overlayHeight()+5))
		if f.State() != PickerClosed {
			t.Fatal("outside click must close the picker")
		}
		if f.DisplayText() != display {
			t.Errorf("outside click must not commit: display %q", f.DisplayText())
		}
	})

	t.Run("ButtonClickOpens", func(t *testing.T) {
		f := NewPhoneField(testCat(t))
		f.Focus()
		f, _ = f.Update(click(1, 1))
		if f.State() != PickerOpen {
			t.Error("click on the country button must open the picker")
		}
	})
}
