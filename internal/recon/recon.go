// Package recon reconstructs the voucher hierarchy from a flat Tally export
// stream.
//
// The export is a flat, order-preserving sequence of tagged values with no
// nesting: voucher fields, ledger-entry fields and inventory-entry fields are
// interleaved in arrival order, and the only structural signal is that each
// record kind has a boundary tag emitted first. Reconstruction is a single
// sequential pass over the stream; it must not be parallelized, because
// parent/child association depends entirely on order of arrival.
package recon

import (
	"fmt"

	"github.com/ledgerbridge/tallysync/internal/tags"
)

// Reconstructor recovers record boundaries and parent/child association from
// a flat tag stream. One Reconstructor may be reused across passes; all pass
// state lives in the Reconstruct call.
type Reconstructor struct {
	Tags  tags.Map
	Dates DatePolicy
}

// New returns a Reconstructor using the given tag map and date policy.
func New(m tags.Map, dates DatePolicy) *Reconstructor {
	return &Reconstructor{Tags: m, Dates: dates}
}

// pass holds the mutable state of one reconstruction pass: the three
// "current record" slots plus output collections. Scoped to a single
// Reconstruct call, never shared.
type pass struct {
	r *Reconstructor

	voucher   map[string]string
	ledger    map[string]string
	inventory map[string]string

	ledgerSeq    int
	inventorySeq int

	out Result
}

// Reconstruct consumes the stream and emits vouchers, ledger entries and
// inventory entries. Entries carry the GUID of the voucher that was open
// when their boundary tag arrived; entries seen before any voucher attach to
// the synthetic UnassignedParent and produce a warning. Unrecognized tags
// are skipped. Malformed field values produce warnings, never drop a record.
func (r *Reconstructor) Reconstruct(stream []tags.TagValue) (*Result, error) {
	p := &pass{r: r}

	for _, tv := range stream {
		kind, field, boundary := r.Tags.Classify(tv.Name)
		switch kind {
		case tags.KindVoucher:
			if boundary {
				// A new voucher closes the previous voucher's open
				// children first: a transaction cannot continue a prior
				// transaction's entries.
				p.flushLedger()
				p.flushInventory()
				p.flushVoucher()
				p.voucher = map[string]string{"guid": tv.Value}
				p.ledgerSeq = 0
				p.inventorySeq = 0
				continue
			}
			if p.voucher == nil {
				p.warn(tags.KindVoucher, "", fmt.Sprintf("voucher field %s with no open voucher", tv.Name))
				continue
			}
			p.voucher[field] = tv.Value

		case tags.KindLedgerEntry:
			if boundary {
				p.flushLedger()
				p.ledger = map[string]string{"guid": tv.Value}
				if p.openParent() == UnassignedParent {
					p.warn(tags.KindLedgerEntry, tv.Value, "ledger entry with no open voucher, attached to synthetic parent")
				}
				p.ledger["__parent"] = p.openParent()
				continue
			}
			if p.ledger == nil {
				p.warn(tags.KindLedgerEntry, "", fmt.Sprintf("ledger field %s with no open entry", tv.Name))
				continue
			}
			p.ledger[field] = tv.Value

		case tags.KindInventoryEntry:
			if boundary {
				p.flushInventory()
				p.inventory = map[string]string{"guid": tv.Value}
				if p.openParent() == UnassignedParent {
					p.warn(tags.KindInventoryEntry, tv.Value, "inventory entry with no open voucher, attached to synthetic parent")
				}
				p.inventory["__parent"] = p.openParent()
				continue
			}
			if p.inventory == nil {
				p.warn(tags.KindInventoryEntry, "", fmt.Sprintf("inventory field %s with no open entry", tv.Name))
				continue
			}
			p.inventory[field] = tv.Value
		}
	}

	// End of stream flushes all three open slots.
	p.flushLedger()
	p.flushInventory()
	p.flushVoucher()

	return &p.out, nil
}

// openParent returns the correlation key for a child opened now: the GUID of
// the currently open voucher, or the synthetic parent when none is open.
func (p *pass) openParent() string {
	if p.voucher == nil || p.voucher["guid"] == "" {
		return UnassignedParent
	}
	return p.voucher["guid"]
}

func (p *pass) warn(kind tags.Kind, localID, msg string) {
	p.out.Warnings = append(p.out.Warnings, Warning{Kind: kind, LocalID: localID, Message: msg})
}

func (p *pass) flushVoucher() {
	if p.voucher == nil {
		return
	}
	raw := p.voucher
	p.voucher = nil

	if raw["guid"] == "" {
		p.warn(tags.KindVoucher, "", "voucher with empty id dropped")
		return
	}

	v := Voucher{
		GUID:      raw["guid"],
		Type:      raw["voucher_type"],
		Number:    raw["voucher_number"],
		PartyName: raw["party_name"],
		Narration: raw["narration"],
		Reference: raw["reference"],
	}
	var err error
	if v.Date, err = ParseDate(raw["date"], p.r.Dates); err != nil {
		p.warn(tags.KindVoucher, v.GUID, err.Error())
	}
	if v.Amount, err = ParseAmount(raw["amount"]); err != nil {
		p.warn(tags.KindVoucher, v.GUID, err.Error())
	}
	p.out.Vouchers = append(p.out.Vouchers, v)
}

func (p *pass) flushLedger() {
	if p.ledger == nil {
		return
	}
	raw := p.ledger
	p.ledger = nil

	e := LedgerEntry{
		ParentRef:  raw["__parent"],
		Seq:        p.ledgerSeq,
		LocalID:    raw["guid"],
		LedgerName: raw["ledger_name"],
		IsDebit:    ParseBool(raw["is_debit"]),
	}
	p.ledgerSeq++
	var err error
	if e.Amount, err = ParseAmount(raw["amount"]); err != nil {
		p.warn(tags.KindLedgerEntry, e.LocalID, err.Error())
	}
	p.out.LedgerEntries = append(p.out.LedgerEntries, e)
}

func (p *pass) flushInventory() {
	if p.inventory == nil {
		return
	}
	raw := p.inventory
	p.inventory = nil

	e := InventoryEntry{
		ParentRef:      raw["__parent"],
		Seq:            p.inventorySeq,
		LocalID:        raw["guid"],
		StockItemName:  raw["stock_item_name"],
		GodownName:     raw["godown_name"],
		TrackingNumber: raw["tracking_number"],
	}
	p.inventorySeq++
	var err error
	if e.Quantity, err = ParseAmount(raw["quantity"]); err != nil {
		p.warn(tags.KindInventoryEntry, e.LocalID, err.Error())
	}
	if e.Rate, err = ParseAmount(raw["rate"]); err != nil {
		p.warn(tags.KindInventoryEntry, e.LocalID, err.Error())
	}
	if e.Amount, err = ParseAmount(raw["amount"]); err != nil {
		p.warn(tags.KindInventoryEntry, e.LocalID, err.Error())
	}
	p.out.InventoryEntries = append(p.out.InventoryEntries, e)
}
