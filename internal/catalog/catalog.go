// Package catalog builds the immutable, locale-sorted list of
// countries offered by the picker: one entry per supported region,
// carrying its calling code and a localized display name.
package catalog

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"phonefield/internal/errors"
)

// Entry describes one pickable country.
type Entry struct {
	DisplayName string
	CallingCode string
	RegionCode  string // ISO-3166 alpha-2
}

// Catalog is an immutable, sorted country list. It is safe to share
// read-only across widget instances of the same locale.
type Catalog struct {
	entries []Entry
	byCode  map[string]int
}

// New builds a catalog for the given locale. Display names come from
// the CLDR data in x/text; ordering is locale-aware collation of the
// display name. Construction failure is fatal to the widget.
func New(tag language.Tag) (*Catalog, error) {
	regions := phonenumbers.GetSupportedRegions()
	if len(regions) == 0 {
		return nil, errors.New(errors.CodeSetupFailed, "no supported regions available", nil)
	}

	namer := display.Regions(tag)
	entries := make([]Entry, 0, len(regions))
	for region := range regions {
		code := phonenumbers.GetCountryCodeForRegion(region)
		if code == 0 {
			continue
		}
		entries = append(entries, Entry{
			DisplayName: regionName(namer, region),
			CallingCode: strconv.Itoa(code),
			RegionCode:  region,
		})
	}
	if len(entries) == 0 {
		return nil, errors.New(errors.CodeSetupFailed, "no regions with calling codes", nil)
	}

	col := collate.New(tag)
	sort.SliceStable(entries, func(i, j int) bool {
		if c := col.CompareString(entries[i].DisplayName, entries[j].DisplayName); c != 0 {
			return c < 0
		}
		return entries[i].RegionCode < entries[j].RegionCode
	})

	byCode := make(map[string]int, len(entries))
	for i, e := range entries {
		byCode[e.RegionCode] = i
	}
	return &Catalog{entries: entries, byCode: byCode}, nil
}

// Entries returns the sorted entries. Callers must not mutate the
// returned slice.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// At returns the entry at index i.
func (c *Catalog) At(i int) Entry {
	return c.entries[i]
}

// Index returns the position of the given region in sorted order, or
// -1 when the region is not in the catalog.
func (c *Catalog) Index(region string) int {
	if i, ok := c.byCode[region]; ok {
		return i
	}
	return -1
}

// ByRegion looks up the entry for a region code.
func (c *Catalog) ByRegion(region string) (Entry, bool) {
	i, ok := c.byCode[region]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// CallingCode returns the calling code for a region, or an error when
// the region is not in the catalog.
func (c *Catalog) CallingCode(region string) (string, error) {
	e, ok := c.ByRegion(region)
	if !ok {
		return "", errors.New(errors.CodeUnknownRegion, fmt.Sprintf("region %q not in catalog", region), nil)
	}
	return e.CallingCode, nil
}

func regionName(namer display.Namer, code string) string {
	r, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := namer.Name(r); name != "" {
		return name
	}
	return code
}
