// Package record defines the persistent presale accounting records and their
// borsh slot encoding.
//
// Each record occupies the prefix of one host slot:
//
//	PurchaseLedger   accumulated_amount u64   per buyer
//	SupplyPool       remaining_amount   u64   global; 0 means uninitialized
//	ReleaseSchedule  release_timestamp  u64   global; 0 means no restriction
//	TokenAccount     authority [32]byte, amount u64   host token slots
//
// Slots are allocated and zero-filled by the host. This package never grows
// or shrinks slot data: Write overlays the encoded record onto a copy of the
// existing bytes.
package record
