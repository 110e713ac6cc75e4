// Package ui implements the interactive international phone input: an
// editing engine that reformats on every keystroke, a keyboard-driven
// country picker overlay, and the submit-time validation gate.
package ui

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"phonefield/internal/catalog"
	"phonefield/internal/debug"
	pferrors "phonefield/internal/errors"
	"phonefield/internal/format"
)

// PickerState represents the open/closed state of the country overlay.
type PickerState int

const (
	// PickerClosed - overlay hidden, keystrokes edit the number.
	PickerClosed PickerState = iota
	// PickerOpen - overlay visible, keystrokes drive the picker.
	PickerOpen
)

// fieldHeight is the rendered height of the bordered input box.
const fieldHeight = 3

// PhoneField is the phone input component. It owns one input state and
// one picker state; the catalog is shared read-only across instances.
type PhoneField struct {
	// Configuration (set at creation)
	Width       int
	MaxVisible  int
	MobileOnly  bool
	Placeholder string

	textInput textinput.Model
	formatter *format.Formatter
	catalog   *catalog.Catalog

	// Input state. displayText is always the formatter's output for
	// the characters entered since the last reset; canonicalValue is
	// empty whenever the number is incomplete.
	displayText    string
	caretOffset    int
	canonicalValue string
	detectedRegion string
	pristine       bool

	// Picker state. Meaningful only while the overlay is open.
	picker         PickerState
	filtered       []int // catalog indices listed by the overlay
	highlightIndex int   // index into filtered; -1 = none
	scrollOffset   int
	searchQuery    string
	dropUp         bool

	focused     bool
	pendingBlur bool

	// Counters guarding deferred callbacks against replaced state: a
	// stale reposition tick, caret placement or blur check is dropped
	// when its token no longer matches.
	pickerGen int
	editSeq   int
	focusSeq  int

	anchorY      int
	windowHeight int

	validationMsg string
}

// NewPhoneField creates a phone field over the given catalog with no
// default region.
func NewPhoneField(cat *catalog.Catalog) PhoneField {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 32

	f := PhoneField{
		Width:          44,
		MaxVisible:     7,
		textInput:      ti,
		formatter:      format.New(""),
		catalog:        cat,
		pristine:       true,
		highlightIndex: -1,
	}
	f.textInput.Width = f.Width - 12
	return f
}

// WithDefaultRegion sets the fallback region used to interpret
// national-format input.
func (f PhoneField) WithDefaultRegion(region string) PhoneField {
	f.formatter = format.New(region)
	return f
}

// WithMobileOnly restricts validation to numbers classified as mobile.
func (f PhoneField) WithMobileOnly(mobileOnly bool) PhoneField {
	f.MobileOnly = mobileOnly
	return f
}

// WithWidth sets the display width.
func (f PhoneField) WithWidth(w int) PhoneField {
	f.Width = w
	f.textInput.Width = w - 12
	return f
}

// WithMaxVisible sets the maximum visible rows in the picker overlay.
func (f PhoneField) WithMaxVisible(n int) PhoneField {
	if n > 0 {
		f.MaxVisible = n
	}
	return f
}

// WithPlaceholder sets the placeholder text.
func (f PhoneField) WithPlaceholder(s string) PhoneField {
	f.Placeholder = s
	f.textInput.Placeholder = s
	return f
}

// WithInitialValue seeds the field from the host's raw value. The
// value runs through the same edit pipeline as typed input.
func (f PhoneField) WithInitialValue(raw string) PhoneField {
	_ = f.applyEdit(raw, len([]rune(raw)))
	return f
}

// Init implements tea.Model.
func (f PhoneField) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (f PhoneField) Update(msg tea.Msg) (PhoneField, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !f.focused {
			return f, nil
		}
		if f.picker == PickerOpen {
			return f.handlePickerKey(msg)
		}
		return f.handleFieldKey(msg)

	case tea.MouseMsg:
		return f.handleMouse(msg)

	case tea.WindowSizeMsg:
		f.windowHeight = msg.Height
		f.reanchor()
		return f, nil

	case repositionTickMsg:
		if msg.generation != f.pickerGen || f.picker != PickerOpen {
			// Subscription released: a close() bumped the generation.
			return f, nil
		}
		f.reanchor()
		return f, scheduleReposition(f.pickerGen)

	case caretPlacedMsg:
		if msg.seq == f.editSeq {
			f.textInput.SetCursor(msg.offset)
			f.caretOffset = msg.offset
		}
		return f, nil

	case blurCheckMsg:
		if msg.seq == f.focusSeq && f.pendingBlur {
			f.pendingBlur = false
			f.blurNow()
			return f, func() tea.Msg { return BlurredMsg{} }
		}
		return f, nil
	}

	var cmd tea.Cmd
	f.textInput, cmd = f.textInput.Update(msg)
	return f, cmd
}

func (f PhoneField) handleFieldKey(msg tea.KeyMsg) (PhoneField, tea.Cmd) {
	switch msg.Type {
	case tea.KeyDown:
		return f, f.openPicker()

	case tea.KeyEnter:
		valid := f.CheckValidity()
		value, message := f.canonicalValue, f.validationMsg
		return f, func() tea.Msg {
			return SubmittedMsg{Value: value, Valid: valid, Message: message}
		}

	case tea.KeyCtrlV:
		pasted, err := clipboard.ReadAll()
		if err != nil {
			return f, nil
		}
		return f, f.insertText(pasted)

	case tea.KeyRunes, tea.KeyBackspace, tea.KeyDelete, tea.KeySpace:
		prev := f.textInput.Value()
		var cmd tea.Cmd
		f.textInput, cmd = f.textInput.Update(msg)
		raw := f.textInput.Value()
		if raw == prev {
			return f, cmd
		}
		return f, tea.Batch(cmd, f.applyEdit(raw, f.textInput.Position()))
	}

	// Cursor movement and everything else belongs to the text input.
	var cmd tea.Cmd
	f.textInput, cmd = f.textInput.Update(msg)
	f.caretOffset = f.textInput.Position()
	return f, cmd
}

func (f PhoneField) handlePickerKey(msg tea.KeyMsg) (PhoneField, tea.Cmd) {
	// Any picker interaction proves focus never really left the widget.
	f.pendingBlur = false

	switch msg.Type {
	case tea.KeyEsc:
		f.closePicker()
		return f, nil

	case tea.KeyEnter:
		if f.highlightIndex >= 0 && f.highlightIndex < len(f.filtered) {
			entry := f.catalog.At(f.filtered[f.highlightIndex])
			return f, f.commitCountry(entry)
		}
		return f, nil

	case tea.KeyUp:
		f.highlightPrevious()
		return f, nil

	case tea.KeyDown:
		f.highlightNext()
		return f, nil

	case tea.KeyBackspace:
		if f.searchQuery != "" {
			runes := []rune(f.searchQuery)
			f.searchQuery = string(runes[:len(runes)-1])
			f.refilter()
		}
		return f, nil

	case tea.KeyRunes:
		text := string(msg.Runes)
		if isDialText(text) {
			// Digits skip the picker entirely: close, then forward the
			// digit into the editing engine.
			f.closePicker()
			return f, f.insertText(text)
		}
		f.searchQuery += text
		f.refilter()
		return f, nil
	}

	return f, nil
}

func (f PhoneField) handleMouse(msg tea.MouseMsg) (PhoneField, tea.Cmd) {
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return f, nil
	}

	if f.picker != PickerOpen {
		// Clicking the country button opens the picker.
		if msg.Y >= f.fieldOriginY() && msg.Y < f.fieldOriginY()+fieldHeight && msg.X < buttonWidth {
			return f, f.openPicker()
		}
		return f, nil
	}

	f.pendingBlur = false
	if row, ok := f.overlayRowAt(msg.X, msg.Y); ok {
		entry := f.catalog.At(f.filtered[row])
		return f, f.commitCountry(entry)
	}
	// Outside click closes without committing.
	f.closePicker()
	return f, nil
}

// applyEdit re-runs the formatter over the full raw text, recomputes
// the caret, and pushes the canonical value outward. rawText is the
// text as it stands after the edit; caretBefore is the caret offset
// within it.
func (f *PhoneField) applyEdit(rawText string, caretBefore int) tea.Cmd {
	f.editSeq++
	prevLen := len([]rune(f.displayText))

	if rawText == "" {
		// Reset path: the user can restart without the leading "+"
		// auto-insertion interfering.
		f.pristine = true
		f.displayText = ""
		f.canonicalValue = ""
		f.detectedRegion = ""
		f.caretOffset = 0
		f.formatter.Reset()
		f.textInput.SetValue("")
		return f.changed()
	}

	text := rawText
	if f.pristine && f.formatter.DefaultRegion() == "" && !strings.HasPrefix(format.Clean(text), "+") {
		// One-time transition out of pristine state: drop a trunk
		// prefix digit and seed international mode.
		cleaned := format.Clean(text)
		cleaned = strings.TrimPrefix(cleaned, "0")
		text = "+" + cleaned
		rawText = text
		caretBefore = len([]rune(text))
	}
	f.pristine = false

	f.formatter.Reset()
	f.displayText = f.formatter.Input(text)
	f.canonicalValue = ""
	if v, ok := f.formatter.NumberValue(); ok {
		f.canonicalValue = v
	}
	f.detectedRegion = ""
	if r, ok := f.formatter.Country(); ok {
		f.detectedRegion = r
	}

	newLen := len([]rune(f.displayText))
	caret := caretBefore
	if caretBefore >= len([]rune(rawText)) {
		// Caret was at the end: keep it pinned there.
		caret = newLen
	} else {
		if caretBefore == prevLen {
			// Bias one character right so the caret lands after an
			// inserted formatting separator.
			caret++
		}
		if caret > newLen {
			caret = newLen
		}
	}
	if caret < 0 {
		caret = 0
	}

	f.textInput.SetValue(f.displayText)
	f.textInput.SetCursor(caret)
	f.caretOffset = caret

	// Caret placement is re-asserted after the current turn settles;
	// a newer edit supersedes it.
	return tea.Batch(f.changed(), scheduleCaretPlacement(f.editSeq, caret))
}

// insertText feeds text into the editing engine at the current caret,
// as if typed.
func (f *PhoneField) insertText(text string) tea.Cmd {
	runes := []rune(f.displayText)
	caret := f.caretOffset
	if caret > len(runes) {
		caret = len(runes)
	}
	raw := string(runes[:caret]) + text + string(runes[caret:])
	return f.applyEdit(raw, caret+len([]rune(text)))
}

func (f *PhoneField) changed() tea.Cmd {
	value, region, valid := f.canonicalValue, f.detectedRegion, f.formatter.IsValid()
	debug.Logf("edit: display=%q value=%q region=%q caret=%d", f.displayText, value, region, f.caretOffset)
	return func() tea.Msg {
		return ChangedMsg{Value: value, Region: region, Valid: valid}
	}
}

// openPicker transitions Closed -> Open and acquires the positioning
// subscription for this open() call.
func (f *PhoneField) openPicker() tea.Cmd {
	if f.picker == PickerOpen {
		return nil
	}
	f.picker = PickerOpen
	f.pickerGen++
	f.searchQuery = ""
	f.refilter()
	f.highlightIndex = -1
	if f.detectedRegion != "" {
		if i := f.positionOf(f.catalog.Index(f.detectedRegion)); i >= 0 {
			f.highlightIndex = i
		}
	}
	f.scrollOffset = 0
	f.adjustScrollOffset()
	f.reanchor()
	debug.Logf("picker: open gen=%d highlight=%d", f.pickerGen, f.highlightIndex)
	return scheduleReposition(f.pickerGen)
}

// closePicker transitions Open -> Closed without committing. Bumping
// the generation releases the positioning subscription exactly once;
// every path back to Closed funnels through here.
func (f *PhoneField) closePicker() {
	if f.picker == PickerClosed {
		return
	}
	f.picker = PickerClosed
	f.pickerGen++
	f.searchQuery = ""
	f.filtered = nil
	f.highlightIndex = -1
	f.scrollOffset = 0
	f.dropUp = false
	debug.Logf("picker: closed gen=%d", f.pickerGen)
}

// commitCountry transitions Open -> Closed, rewriting the text to the
// committed calling code plus the current national significant number.
func (f *PhoneField) commitCountry(entry catalog.Entry) tea.Cmd {
	f.closePicker()
	nsn := ""
	if num, ok := f.formatter.Number(); ok {
		nsn = num.NationalSignificantNumber
	}
	text := "+" + entry.CallingCode + nsn
	editCmd := f.applyEdit(text, len([]rune(text)))
	region, code := entry.RegionCode, entry.CallingCode
	return tea.Batch(editCmd, func() tea.Msg {
		return CountryCommittedMsg{Region: region, CallingCode: code}
	})
}

func (f *PhoneField) highlightNext() {
	n := len(f.filtered)
	if n == 0 {
		return
	}
	if f.highlightIndex < 0 {
		f.highlightIndex = 0
	} else {
		f.highlightIndex = (f.highlightIndex + 1) % n
	}
	f.adjustScrollOffset()
}

func (f *PhoneField) highlightPrevious() {
	n := len(f.filtered)
	if n == 0 {
		return
	}
	if f.highlightIndex < 0 {
		f.highlightIndex = n - 1
	} else {
		f.highlightIndex = (f.highlightIndex - 1 + n) % n
	}
	f.adjustScrollOffset()
}

func (f *PhoneField) refilter() {
	f.filtered = filterEntries(f.catalog, f.searchQuery)
	if len(f.filtered) == 0 {
		f.highlightIndex = -1
	} else {
		f.highlightIndex = 0
	}
	f.scrollOffset = 0
	f.adjustScrollOffset()
}

// positionOf maps a catalog index to its position in the filtered
// list, -1 when filtered out.
func (f *PhoneField) positionOf(catalogIndex int) int {
	if catalogIndex < 0 {
		return -1
	}
	for i, idx := range f.filtered {
		if idx == catalogIndex {
			return i
		}
	}
	return -1
}

// adjustScrollOffset keeps the highlighted row inside the visible
// window of the overlay.
func (f *PhoneField) adjustScrollOffset() {
	if f.highlightIndex >= 0 && f.highlightIndex < f.scrollOffset {
		f.scrollOffset = f.highlightIndex
	}
	if f.highlightIndex >= f.scrollOffset+f.MaxVisible {
		f.scrollOffset = f.highlightIndex - f.MaxVisible + 1
	}
	if f.scrollOffset < 0 {
		f.scrollOffset = 0
	}
	maxOffset := len(f.filtered) - f.MaxVisible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if f.scrollOffset > maxOffset {
		f.scrollOffset = maxOffset
	}
}

// reanchor recomputes which side of the field the overlay opens on,
// given the widget's anchor row and the window height.
func (f *PhoneField) reanchor() {
	if f.picker != PickerOpen || f.windowHeight <= 0 {
		f.dropUp = false
		return
	}
	overflowsBelow := f.anchorY+fieldHeight+f.overlayHeight() > f.windowHeight
	f.dropUp = overflowsBelow && f.anchorY >= f.overlayHeight()
}

// CheckValidity is the accept/reject gate consulted before submission.
// On failure a human-readable reason is retained for the host.
func (f *PhoneField) CheckValidity() bool {
	if f.MobileOnly {
		if f.formatter.IsValid() && f.formatter.IsMobile() {
			f.validationMsg = ""
			return true
		}
		f.validationMsg = "invalid mobile number"
		return false
	}
	if f.formatter.IsValid() {
		f.validationMsg = ""
		return true
	}
	f.validationMsg = "invalid phone number"
	return false
}

// Validate returns a structured error describing why the field is
// invalid, or nil.
func (f *PhoneField) Validate() error {
	if f.CheckValidity() {
		return nil
	}
	code := pferrors.CodeInvalidNumber
	if f.MobileOnly {
		code = pferrors.CodeInvalidMobileNumber
	}
	return pferrors.New(code, f.validationMsg, nil)
}

// ValidationMessage returns the reason recorded by the last
// CheckValidity failure, empty when valid.
func (f PhoneField) ValidationMessage() string {
	return f.validationMsg
}

// Focus focuses the field and returns a blink command.
func (f *PhoneField) Focus() tea.Cmd {
	f.focused = true
	f.pendingBlur = false
	f.focusSeq++
	return tea.Batch(f.textInput.Focus(), func() tea.Msg { return FocusedMsg{} })
}

// RequestBlur starts the deferred focus re-check: the field only truly
// blurs if no picker interaction arrives before the check fires.
func (f *PhoneField) RequestBlur() tea.Cmd {
	if !f.focused {
		return nil
	}
	f.focusSeq++
	f.pendingBlur = true
	return scheduleBlurCheck(f.focusSeq)
}

func (f *PhoneField) blurNow() {
	f.focused = false
	f.textInput.Blur()
	f.closePicker()
}

// SetAnchor tells the widget its top row within the window so the
// overlay can flip above the field when it would overflow the bottom.
func (f *PhoneField) SetAnchor(y int) {
	if y < 0 {
		y = 0
	}
	f.anchorY = y
	f.reanchor()
}

// Search replaces the picker search query. No-op while closed.
func (f *PhoneField) Search(query string) {
	if f.picker != PickerOpen {
		return
	}
	f.searchQuery = query
	f.refilter()
}

// Value returns the canonical E.164 value, empty while incomplete.
// This, not the display text, is what the host submits.
func (f PhoneField) Value() string {
	return f.canonicalValue
}

// DisplayText returns the formatted presentation text.
func (f PhoneField) DisplayText() string {
	return f.displayText
}

// CaretOffset returns the caret position within the display text.
func (f PhoneField) CaretOffset() int {
	return f.caretOffset
}

// DetectedRegion returns the region inferred from the current input,
// empty when undetermined.
func (f PhoneField) DetectedRegion() string {
	return f.detectedRegion
}

// Pristine reports whether the field has received no meaningful edit
// since being emptied or initialized.
func (f PhoneField) Pristine() bool {
	return f.pristine
}

// State returns the picker state.
func (f PhoneField) State() PickerState {
	return f.picker
}

// HighlightedRegion returns the region code of the highlighted picker
// row, empty when none.
func (f PhoneField) HighlightedRegion() string {
	if f.picker != PickerOpen || f.highlightIndex < 0 || f.highlightIndex >= len(f.filtered) {
		return ""
	}
	return f.catalog.At(f.filtered[f.highlightIndex]).RegionCode
}

// SearchQuery returns the current picker search query.
func (f PhoneField) SearchQuery() string {
	return f.searchQuery
}

// Focused returns whether the field is focused.
func (f PhoneField) Focused() bool {
	return f.focused
}

// FilteredLen returns the number of rows the overlay currently lists.
func (f PhoneField) FilteredLen() int {
	return len(f.filtered)
}

func isDialText(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '+' && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
