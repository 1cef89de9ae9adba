package models

import (
	"strconv"
	"strings"
	"time"
)

// Record is the merge contract every catalog entity satisfies. Identity
// is the natural key, never the surrogate id: two records with equal
// keys describe the same real-world thing even when one of them has no
// id yet.
type Record interface {
	Kind() Kind
	// Key returns the natural key encoded as a stable string.
	Key() string
	SurrogateID() uint
	// MergeInto copies this record's non-key attributes into target and
	// reports whether anything actually changed. target keeps its id.
	MergeInto(target Record) bool
	// Touch refreshes the row's loaddate, reaffirming it for this run.
	Touch(now time.Time)
}

func joinKey(parts ...string) string {
	return strings.Join(parts, "|")
}

func (m *Manufacturer) Kind() Kind          { return KindManufacturer }
func (m *Manufacturer) Key() string         { return m.Name }
func (m *Manufacturer) SurrogateID() uint   { return m.ID }
func (m *Manufacturer) Touch(now time.Time) { m.LoadDate = now }

func (m *Manufacturer) MergeInto(target Record) bool {
	t := target.(*Manufacturer)
	changed := false
	if m.Code != "" && m.Code != t.Code {
		t.Code = m.Code
		changed = true
	}
	return changed
}

func (s *Ship) Kind() Kind          { return KindShip }
func (s *Ship) Key() string         { return s.Name }
func (s *Ship) SurrogateID() uint   { return s.ID }
func (s *Ship) Touch(now time.Time) { s.LoadDate = now }

func (s *Ship) MergeInto(target Record) bool {
	t := target.(*Ship)
	changed := false
	if s.ManufacturerID != 0 && s.ManufacturerID != t.ManufacturerID {
		t.ManufacturerID = s.ManufacturerID
		changed = true
	}
	return changed
}

func (s *Standalone) Kind() Kind          { return KindStandalone }
func (s *Standalone) SurrogateID() uint   { return s.ID }
func (s *Standalone) Touch(now time.Time) { s.LoadDate = now }

func (s *Standalone) Key() string {
	return joinKey(
		strconv.FormatUint(uint64(s.ShipID), 10),
		formatPrice(s.PriceUSD),
		strconv.FormatUint(uint64(s.StoreID), 10),
	)
}

func (s *Standalone) MergeInto(target Record) bool {
	t := target.(*Standalone)
	changed := false
	if s.NeedsReview != t.NeedsReview {
		t.NeedsReview = s.NeedsReview
		changed = true
	}
	return changed
}

func (u *Upgrade) Kind() Kind          { return KindUpgrade }
func (u *Upgrade) SurrogateID() uint   { return u.ID }
func (u *Upgrade) Touch(now time.Time) { u.LoadDate = now }

func (u *Upgrade) Key() string {
	return joinKey(
		strconv.FormatUint(uint64(u.ShipFromID), 10),
		strconv.FormatUint(uint64(u.ShipToID), 10),
		formatPrice(u.PriceUSD),
		strconv.FormatUint(uint64(u.StoreID), 10),
	)
}

func (u *Upgrade) MergeInto(target Record) bool {
	t := target.(*Upgrade)
	changed := false
	if u.NeedsReview != t.NeedsReview {
		t.NeedsReview = u.NeedsReview
		changed = true
	}
	return changed
}
